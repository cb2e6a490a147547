package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess         int
	LoginFailure         int
	LoginInactive        int
	LoginRateLimited     int
	PasswordHashUpgraded int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountInactive    error
	AccountNotFound    error
	LoginRateLimited   error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool
	// DummyHash is verified against when the email is unknown so both
	// failure paths pay for one hash comparison.
	DummyHash string

	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	// CheckLoginRate and IncrementLoginRate return a non-nil error only
	// when the caller is throttled.
	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string)

	FindByEmail func(context.Context, string) (AccountRecord, error)
	SaveAccount func(context.Context, AccountRecord) (AccountRecord, error)

	VerifyPassword       func(string, string) (bool, error)
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)

	Tokens      TokenIssuer
	BindSession func(context.Context, PrincipalRecord)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin checks email and password and, on success, issues a token pair and
// binds the principal to the request session.
//
// An unknown email and a wrong password produce the same error.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*TokenPairResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.FindByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.Tokens.Issue == nil ||
		deps.BindSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	rateLimited := func(accountID int64) error {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, accountID, email, deps.Errors.LoginRateLimited, nil)
		return deps.Errors.LoginRateLimited
	}
	fail := func(accountID int64, reason string) error {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, email, ip); err != nil {
				return rateLimited(accountID)
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, accountID, email, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return deps.Errors.InvalidCredentials
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			return nil, rateLimited(0)
		}
	}

	if password == "" {
		return nil, fail(0, "empty_password")
	}

	acct, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return nil, fmt.Errorf("login: find account: %w", err)
		}
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return nil, fail(0, "account_not_found")
	}

	ok, err := deps.VerifyPassword(password, acct.PasswordHash)
	if err != nil {
		deps.Warn("authcore: stored password hash could not be verified", "account_id", acct.ID, "error", err)
	}
	if err != nil || !ok {
		return nil, fail(acct.ID, "password_mismatch")
	}

	if !acct.Active {
		deps.MetricInc(deps.Metrics.LoginInactive)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, acct.ID, email, deps.Errors.AccountInactive, func() map[string]string {
			return map[string]string{"reason": "account_inactive"}
		})
		return nil, deps.Errors.AccountInactive
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.SaveAccount != nil {
		acct = upgradeHash(ctx, acct, password, deps)
	}
	password = ""

	access, refresh, err := issuePair(deps.Tokens, acct)
	if err != nil {
		return nil, fmt.Errorf("login: issue tokens: %w", err)
	}

	if deps.ResetLoginRate != nil {
		deps.ResetLoginRate(ctx, email, ip)
	}
	deps.BindSession(ctx, PrincipalFromAccount(acct))

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, acct.ID, email, nil, nil)

	return &TokenPairResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Account:      acct,
	}, nil
}

// upgradeHash re-hashes password when the stored hash is outdated. Failures
// are logged and never fail the login.
func upgradeHash(ctx context.Context, acct AccountRecord, password string, deps LoginDeps) AccountRecord {
	needsUpgrade, err := deps.PasswordNeedsUpgrade(acct.PasswordHash)
	if err != nil || !needsUpgrade {
		return acct
	}

	upgraded, err := deps.HashPassword(password)
	if err != nil {
		deps.Warn("authcore: password hash upgrade generation failed", "account_id", acct.ID, "error", err)
		return acct
	}

	next := acct
	next.PasswordHash = upgraded
	next.UpdatedAt = deps.Now()
	saved, err := deps.SaveAccount(ctx, next)
	if err != nil {
		deps.Warn("authcore: password hash upgrade update failed", "account_id", acct.ID, "error", err)
		return acct
	}
	deps.MetricInc(deps.Metrics.PasswordHashUpgraded)
	return saved
}
