package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eamcap/authcore/jwt"
)

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess     int
	RefreshFailure     int
	RefreshRateLimited int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess string
	RefreshFailure string
}

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	EngineNotReady     error
	InvalidToken       error
	AccountNotFound    error
	RefreshRateLimited error
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Now        func() time.Time
	ParseToken func(string) (jwt.Claims, error)

	// CheckRefreshRate returns a non-nil error only when the account is throttled.
	CheckRefreshRate func(context.Context, int64) error

	FindByID func(context.Context, int64) (AccountRecord, error)
	Tokens   TokenIssuer

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh exchanges a refresh token for a new access token. It never
// issues a refresh token; the presented one keeps its original expiry.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (string, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.ParseToken == nil || deps.FindByID == nil || deps.Tokens.Issue == nil {
		return "", deps.Errors.EngineNotReady
	}

	invalid := func(accountID int64, reason string) error {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, accountID, "", deps.Errors.InvalidToken, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return deps.Errors.InvalidToken
	}

	claims, err := deps.ParseToken(refreshToken)
	if err != nil {
		return "", invalid(0, "parse")
	}
	if jwt.IsExpired(claims, deps.Now()) {
		return "", invalid(claims.Subject, "expired")
	}
	if claims.Kind != jwt.KindRefresh {
		return "", invalid(claims.Subject, "wrong_kind")
	}

	if deps.CheckRefreshRate != nil {
		if err := deps.CheckRefreshRate(ctx, claims.Subject); err != nil {
			deps.MetricInc(deps.Metrics.RefreshRateLimited)
			deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, claims.Subject, "", deps.Errors.RefreshRateLimited, nil)
			return "", deps.Errors.RefreshRateLimited
		}
	}

	acct, err := deps.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return "", invalid(claims.Subject, "account_not_found")
		}
		return "", fmt.Errorf("refresh: find account: %w", err)
	}
	if !acct.Active {
		return "", invalid(acct.ID, "account_inactive")
	}

	access, err := deps.Tokens.Issue(accessClaims(acct), deps.Tokens.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("refresh: issue access token: %w", err)
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, acct.ID, acct.Email, nil, nil)

	return access, nil
}
