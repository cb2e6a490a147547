package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// ChangePasswordMetrics carries metric IDs needed by the change-password flow.
type ChangePasswordMetrics struct {
	PasswordChangeSuccess    int
	PasswordChangeInvalidOld int
	PasswordChangeRejected   int
}

// ChangePasswordEvents carries audit event names used by the change-password flow.
type ChangePasswordEvents struct {
	PasswordChangeSuccess string
	PasswordChangeFailure string
}

// ChangePasswordErrors carries host-level sentinel errors used by the change-password flow.
type ChangePasswordErrors struct {
	EngineNotReady        error
	UnauthorizedNoSession error
	InvalidCredentials    error
	WeakPassword          error
	PasswordTooLong       error
	AccountInactive       error
	AccountNotFound       error
	InvalidToken          error
}

// ChangePasswordDeps captures change-password dependencies.
type ChangePasswordDeps struct {
	MinPasswordLength int
	MaxPasswordBytes  int
	Now               func() time.Time

	CurrentPrincipal func(context.Context) (PrincipalRecord, bool)
	FindByID         func(context.Context, int64) (AccountRecord, error)
	SaveAccount      func(context.Context, AccountRecord) (AccountRecord, error)
	VerifyPassword   func(string, string) (bool, error)
	HashPassword     func(string) (string, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics ChangePasswordMetrics
	Events  ChangePasswordEvents
	Errors  ChangePasswordErrors
}

// RunChangePassword replaces the stored hash of the session principal. The
// account is re-read from the store; claims are never trusted for the hash.
// Nothing is written unless every check passes.
func RunChangePassword(ctx context.Context, oldPassword, newPassword string, deps ChangePasswordDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.CurrentPrincipal == nil ||
		deps.FindByID == nil ||
		deps.SaveAccount == nil ||
		deps.VerifyPassword == nil ||
		deps.HashPassword == nil {
		return deps.Errors.EngineNotReady
	}

	principal, ok := deps.CurrentPrincipal(ctx)
	if !ok {
		return deps.Errors.UnauthorizedNoSession
	}

	acct, err := deps.FindByID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return deps.Errors.InvalidToken
		}
		return fmt.Errorf("change password: find account: %w", err)
	}

	reject := func(metric int, err error, reason string) error {
		deps.MetricInc(metric)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, acct.ID, acct.Email, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	if !acct.Active {
		return reject(deps.Metrics.PasswordChangeRejected, deps.Errors.AccountInactive, "account_inactive")
	}

	match, err := deps.VerifyPassword(oldPassword, acct.PasswordHash)
	if err != nil || !match {
		return reject(deps.Metrics.PasswordChangeInvalidOld, deps.Errors.InvalidCredentials, "old_password_mismatch")
	}

	if utf8.RuneCountInString(newPassword) < deps.MinPasswordLength {
		return reject(deps.Metrics.PasswordChangeRejected, deps.Errors.WeakPassword, "weak_password")
	}
	if deps.MaxPasswordBytes > 0 && len(newPassword) > deps.MaxPasswordBytes {
		return reject(deps.Metrics.PasswordChangeRejected, deps.Errors.PasswordTooLong, "password_too_long")
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("change password: hash password: %w", err)
	}

	acct.PasswordHash = hash
	acct.UpdatedAt = deps.Now()
	if _, err := deps.SaveAccount(ctx, acct); err != nil {
		return fmt.Errorf("change password: save account: %w", err)
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeSuccess, true, acct.ID, acct.Email, nil, nil)
	return nil
}
