package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// RegisterInput is the flow-local registration request.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	Role       string
	Department string
}

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	RegisterSuccess   int
	RegisterDuplicate int
	RegisterRejected  int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess string
	RegisterFailure string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady  error
	DuplicateEmail  error
	WeakPassword    error
	PasswordTooLong error
	InvalidRole     error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	MinPasswordLength int
	MaxPasswordBytes  int
	DefaultRole       string
	ValidRole         func(string) bool
	Now               func() time.Time

	ExistsByEmail func(context.Context, string) (bool, error)
	SaveAccount   func(context.Context, AccountRecord) (AccountRecord, error)
	HashPassword  func(string) (string, error)

	Tokens      TokenIssuer
	BindSession func(context.Context, PrincipalRecord)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister creates an active account and ends in an authenticated
// session, exactly as a login with the new credentials would.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (*TokenPairResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.ValidRole == nil {
		deps.ValidRole = func(string) bool { return true }
	}
	if deps.ExistsByEmail == nil ||
		deps.SaveAccount == nil ||
		deps.HashPassword == nil ||
		deps.Tokens.Issue == nil ||
		deps.BindSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	reject := func(metric int, err error, reason string) error {
		deps.MetricInc(metric)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, 0, in.Email, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	exists, err := deps.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("register: check email: %w", err)
	}
	if exists {
		return nil, reject(deps.Metrics.RegisterDuplicate, deps.Errors.DuplicateEmail, "duplicate_email")
	}

	if utf8.RuneCountInString(in.Password) < deps.MinPasswordLength {
		return nil, reject(deps.Metrics.RegisterRejected, deps.Errors.WeakPassword, "weak_password")
	}
	if deps.MaxPasswordBytes > 0 && len(in.Password) > deps.MaxPasswordBytes {
		return nil, reject(deps.Metrics.RegisterRejected, deps.Errors.PasswordTooLong, "password_too_long")
	}

	role := in.Role
	if role == "" {
		role = deps.DefaultRole
	}
	if !deps.ValidRole(role) {
		return nil, reject(deps.Metrics.RegisterRejected, deps.Errors.InvalidRole, "invalid_role")
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	in.Password = ""

	now := deps.Now()
	acct, err := deps.SaveAccount(ctx, AccountRecord{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         role,
		Department:   in.Department,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// A concurrent registration can win between the existence check and the insert.
		if errors.Is(err, deps.Errors.DuplicateEmail) {
			return nil, reject(deps.Metrics.RegisterDuplicate, deps.Errors.DuplicateEmail, "duplicate_email")
		}
		return nil, fmt.Errorf("register: save account: %w", err)
	}

	access, refresh, err := issuePair(deps.Tokens, acct)
	if err != nil {
		return nil, fmt.Errorf("register: issue tokens: %w", err)
	}

	deps.BindSession(ctx, PrincipalFromAccount(acct))

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, acct.ID, acct.Email, nil, func() map[string]string {
		return map[string]string{"role": acct.Role}
	})

	return &TokenPairResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Account:      acct,
	}, nil
}
