package authcore

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventRegisterSuccess       = "account_creation_success"
	auditEventRegisterFailure       = "account_creation_failure"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshFailure        = "refresh_invalid"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventLogout                = "logout_session"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountInactive    AuditErrorCode = "account_inactive"
	auditErrDuplicateEmail     AuditErrorCode = "duplicate_email"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidRole        AuditErrorCode = "invalid_role"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, accountID int64, email string, err error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = string(auditErrorCode(err))
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicateEmail
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrPasswordTooLong):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidRole):
		return auditErrInvalidRole
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnauthorizedNoSession):
		return auditErrUnauthorized
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	default:
		return auditErrInternal
	}
}
