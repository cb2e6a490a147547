package authcore

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/eamcap/authcore/internal/flows"
	internalmetrics "github.com/eamcap/authcore/internal/metrics"
	"github.com/eamcap/authcore/internal/rate"
	"go.uber.org/zap"
)

// wireFlows binds the flow dependency sets to this engine. It runs once, at
// the end of Build.
func (e *Engine) wireFlows() {
	tokens := internalflows.TokenIssuer{
		Issue:      e.tokens.Issue,
		AccessTTL:  e.config.JWT.AccessTTL,
		RefreshTTL: e.config.JWT.RefreshTTL,
	}

	var observe func(int, time.Duration)
	if e.metrics.LatencyEnabled() {
		observe = func(id int, d time.Duration) { e.metrics.Observe(internalmetrics.ID(id), d) }
	}

	var (
		checkLogin     func(context.Context, string, string) error
		incrementLogin func(context.Context, string, string) error
		resetLogin     func(context.Context, string, string)
		checkRefresh   func(context.Context, int64) error
	)
	if e.limiter != nil && e.config.Security.EnableLoginThrottle {
		checkLogin = e.checkLoginRate
		incrementLogin = e.incrementLoginRate
		resetLogin = e.resetLoginRate
	}
	if e.limiter != nil && e.config.Security.EnableRefreshThrottle {
		checkRefresh = e.checkRefreshRate
	}

	e.flows = internalflows.New(internalflows.Deps{
		Login: internalflows.LoginDeps{
			PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
			DummyHash:              e.dummyHash,
			ClientIPFromContext:    clientIPFromContext,
			Now:                    e.now,
			CheckLoginRate:         checkLogin,
			IncrementLoginRate:     incrementLogin,
			ResetLoginRate:         resetLogin,
			FindByEmail:            e.findByEmail,
			SaveAccount:            e.saveAccount,
			VerifyPassword:         e.hasher.Verify,
			PasswordNeedsUpgrade:   e.passwordNeedsUpgrade(),
			HashPassword:           e.hasher.Hash,
			Tokens:                 tokens,
			BindSession:            bindSession,
			MetricInc:              e.metricInc,
			EmitAudit:              e.emitAudit,
			Warn:                   e.logger.Sugar().Warnw,
			Metrics: internalflows.LoginMetrics{
				LoginSuccess:         int(MetricLoginSuccess),
				LoginFailure:         int(MetricLoginFailure),
				LoginInactive:        int(MetricLoginInactive),
				LoginRateLimited:     int(MetricLoginRateLimited),
				PasswordHashUpgraded: int(MetricPasswordHashUpgraded),
			},
			Events: internalflows.LoginEvents{
				LoginSuccess:     auditEventLoginSuccess,
				LoginFailure:     auditEventLoginFailure,
				LoginRateLimited: auditEventLoginRateLimited,
			},
			Errors: internalflows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				AccountInactive:    ErrAccountInactive,
				AccountNotFound:    ErrAccountNotFound,
				LoginRateLimited:   ErrLoginRateLimited,
			},
		},
		Register: internalflows.RegisterDeps{
			MinPasswordLength: e.config.Password.MinLength,
			MaxPasswordBytes:  e.config.Password.MaxLength,
			DefaultRole:       e.config.Account.DefaultRole,
			ValidRole:         ValidRole,
			Now:               e.now,
			ExistsByEmail:     e.store.ExistsByEmail,
			SaveAccount:       e.saveAccount,
			HashPassword:      e.hasher.Hash,
			Tokens:            tokens,
			BindSession:       bindSession,
			MetricInc:         e.metricInc,
			EmitAudit:         e.emitAudit,
			Metrics: internalflows.RegisterMetrics{
				RegisterSuccess:   int(MetricRegisterSuccess),
				RegisterDuplicate: int(MetricRegisterDuplicate),
				RegisterRejected:  int(MetricRegisterRejected),
			},
			Events: internalflows.RegisterEvents{
				RegisterSuccess: auditEventRegisterSuccess,
				RegisterFailure: auditEventRegisterFailure,
			},
			Errors: internalflows.RegisterErrors{
				EngineNotReady:  ErrEngineNotReady,
				DuplicateEmail:  ErrDuplicateEmail,
				WeakPassword:    ErrWeakPassword,
				PasswordTooLong: ErrPasswordTooLong,
				InvalidRole:     ErrInvalidRole,
			},
		},
		Refresh: internalflows.RefreshDeps{
			Now:              e.now,
			ParseToken:       e.tokens.ParseAndVerify,
			CheckRefreshRate: checkRefresh,
			FindByID:         e.findByID,
			Tokens:           tokens,
			MetricInc:        e.metricInc,
			EmitAudit:        e.emitAudit,
			Metrics: internalflows.RefreshMetrics{
				RefreshSuccess:     int(MetricRefreshSuccess),
				RefreshFailure:     int(MetricRefreshFailure),
				RefreshRateLimited: int(MetricRefreshRateLimited),
			},
			Events: internalflows.RefreshEvents{
				RefreshSuccess: auditEventRefreshSuccess,
				RefreshFailure: auditEventRefreshFailure,
			},
			Errors: internalflows.RefreshErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidToken:       ErrInvalidToken,
				AccountNotFound:    ErrAccountNotFound,
				RefreshRateLimited: ErrRefreshRateLimited,
			},
		},
		Validate: internalflows.ValidateDeps{
			Now:            e.now,
			ParseToken:     e.tokens.ParseAndVerify,
			MetricInc:      e.metricInc,
			ObserveLatency: observe,
			Metrics: internalflows.ValidateMetrics{
				ValidateSuccess: int(MetricValidateSuccess),
				ValidateFailure: int(MetricValidateFailure),
				ValidateLatency: int(MetricValidateLatency),
			},
			Errors: internalflows.ValidateErrors{
				EngineNotReady: ErrEngineNotReady,
				InvalidToken:   ErrInvalidToken,
			},
		},
		ChangePassword: internalflows.ChangePasswordDeps{
			MinPasswordLength: e.config.Password.MinLength,
			MaxPasswordBytes:  e.config.Password.MaxLength,
			Now:               e.now,
			CurrentPrincipal:  currentPrincipal,
			FindByID:          e.findByID,
			SaveAccount:       e.saveAccount,
			VerifyPassword:    e.hasher.Verify,
			HashPassword:      e.hasher.Hash,
			MetricInc:         e.metricInc,
			EmitAudit:         e.emitAudit,
			Metrics: internalflows.ChangePasswordMetrics{
				PasswordChangeSuccess:    int(MetricPasswordChangeSuccess),
				PasswordChangeInvalidOld: int(MetricPasswordChangeInvalidOld),
				PasswordChangeRejected:   int(MetricPasswordChangeRejected),
			},
			Events: internalflows.ChangePasswordEvents{
				PasswordChangeSuccess: auditEventPasswordChangeSuccess,
				PasswordChangeFailure: auditEventPasswordChangeFailure,
			},
			Errors: internalflows.ChangePasswordErrors{
				EngineNotReady:        ErrEngineNotReady,
				UnauthorizedNoSession: ErrUnauthorizedNoSession,
				InvalidCredentials:    ErrInvalidCredentials,
				WeakPassword:          ErrWeakPassword,
				PasswordTooLong:       ErrPasswordTooLong,
				AccountInactive:       ErrAccountInactive,
				AccountNotFound:       ErrAccountNotFound,
				InvalidToken:          ErrInvalidToken,
			},
		},
		CurrentAccount: internalflows.CurrentAccountDeps{
			CurrentPrincipal: currentPrincipal,
			FindByID:         e.findByID,
			Errors: internalflows.CurrentAccountErrors{
				EngineNotReady:        ErrEngineNotReady,
				UnauthorizedNoSession: ErrUnauthorizedNoSession,
				AccountNotFound:       ErrAccountNotFound,
				InvalidToken:          ErrInvalidToken,
			},
		},
		Logout: internalflows.LogoutDeps{
			ClearSession: clearSession,
			MetricInc:    e.metricInc,
			EmitAudit:    e.emitAudit,
			LogoutMetric: int(MetricLogout),
			LogoutEvent:  auditEventLogout,
		},
	})
}

func (e *Engine) metricInc(id int) {
	e.metrics.Inc(internalmetrics.ID(id))
}

func (e *Engine) findByEmail(ctx context.Context, email string) (internalflows.AccountRecord, error) {
	a, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return internalflows.AccountRecord{}, err
	}
	return toAccountRecord(a), nil
}

func (e *Engine) findByID(ctx context.Context, id int64) (internalflows.AccountRecord, error) {
	a, err := e.store.FindByID(ctx, id)
	if err != nil {
		return internalflows.AccountRecord{}, err
	}
	return toAccountRecord(a), nil
}

func (e *Engine) saveAccount(ctx context.Context, rec internalflows.AccountRecord) (internalflows.AccountRecord, error) {
	a, err := e.store.Save(ctx, fromAccountRecord(rec))
	if err != nil {
		return internalflows.AccountRecord{}, err
	}
	return toAccountRecord(a), nil
}

func (e *Engine) passwordNeedsUpgrade() func(string) (bool, error) {
	uh, ok := e.hasher.(upgradeableHasher)
	if !ok {
		return nil
	}
	return uh.NeedsUpgrade
}

// The throttle adapters fail open: a Redis outage is logged and the
// request proceeds as if the budget were untouched.

func (e *Engine) checkLoginRate(ctx context.Context, email, ip string) error {
	return e.throttleResult("login check", e.limiter.CheckLogin(ctx, email, ip))
}

func (e *Engine) incrementLoginRate(ctx context.Context, email, ip string) error {
	return e.throttleResult("login increment", e.limiter.IncrementLogin(ctx, email, ip))
}

func (e *Engine) resetLoginRate(ctx context.Context, email, ip string) {
	_ = e.throttleResult("login reset", e.limiter.ResetLogin(ctx, email, ip))
}

func (e *Engine) checkRefreshRate(ctx context.Context, accountID int64) error {
	return e.throttleResult("refresh check", e.limiter.CheckRefresh(ctx, accountID))
}

func (e *Engine) throttleResult(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return err
	default:
		e.logger.Warn("throttle unavailable", zap.String("op", op), zap.Error(err))
		return nil
	}
}

func bindSession(ctx context.Context, p internalflows.PrincipalRecord) {
	if sc, ok := SessionFromContext(ctx); ok {
		sc.Bind(fromPrincipalRecord(p))
	}
}

func currentPrincipal(ctx context.Context) (internalflows.PrincipalRecord, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return internalflows.PrincipalRecord{}, false
	}
	return toPrincipalRecord(p), true
}

func clearSession(ctx context.Context) (internalflows.PrincipalRecord, bool) {
	sc, ok := SessionFromContext(ctx)
	if !ok {
		return internalflows.PrincipalRecord{}, false
	}
	p, bound := sc.Current()
	sc.Clear()
	if !bound {
		return internalflows.PrincipalRecord{}, false
	}
	return toPrincipalRecord(p), true
}
