package authcore

import (
	"context"
	"strings"
	"time"

	internalaudit "github.com/eamcap/authcore/internal/audit"
	internalflows "github.com/eamcap/authcore/internal/flows"
	internalmetrics "github.com/eamcap/authcore/internal/metrics"
	"github.com/eamcap/authcore/internal/rate"
	"github.com/eamcap/authcore/jwt"
	"go.uber.org/zap"
)

// Engine is the session issuer: it runs login, registration, refresh,
// logout and password change on top of the token manager.
//
// An Engine is immutable after [Builder.Build] and safe for concurrent use.
// The only per-request state is the [Session] carried by each context.
type Engine struct {
	config    Config
	store     UserStore
	hasher    PasswordHasher
	tokens    *jwt.Manager
	limiter   *rate.Limiter
	audit     *internalaudit.Dispatcher
	metrics   *internalmetrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
	dummyHash string
	flows     internalflows.Service
}

// Close drains buffered audit events. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped returns the number of audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters. It is
// empty when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*internalmetrics.Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Login verifies email and password and returns an access and refresh token
// pair. On success the principal is bound to the session carried by ctx,
// if any. An unknown email and a wrong password both return
// [ErrInvalidCredentials]; a deactivated account returns [ErrAccountInactive].
func (e *Engine) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	res, err := e.flows.Login(ctx, email, password)
	if err != nil {
		e.logger.Debug("login rejected", zap.Error(err))
		return nil, err
	}
	e.logger.Debug("login succeeded", zap.Int64("account_id", res.Account.ID))
	return toTokenPair(res), nil
}

// Register creates an active account and then behaves like a successful
// Login for it. It fails with [ErrDuplicateEmail], [ErrWeakPassword],
// [ErrPasswordTooLong] or [ErrInvalidRole] without persisting anything.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := e.flows.Register(ctx, internalflows.RegisterInput{
		Email:      normalizeEmail(req.Email),
		Password:   req.Password,
		Name:       strings.TrimSpace(req.Name),
		Role:       strings.ToUpper(strings.TrimSpace(req.Role)),
		Department: strings.TrimSpace(req.Department),
	})
	if err != nil {
		e.logger.Debug("registration rejected", zap.Error(err))
		return nil, err
	}
	e.logger.Info("account registered", zap.Int64("account_id", res.Account.ID), zap.String("role", res.Account.Role))
	return toTokenPair(res), nil
}

// Refresh exchanges a refresh-kind token for a new access token. Every
// token or account problem collapses to [ErrInvalidToken]. No refresh token
// is ever issued here.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	access, err := e.flows.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{AccessToken: access}, nil
}

// ValidateAccess is the gate for every protected request: signature, expiry
// and kind are checked. It does not consult the store and does not bind the
// principal; see [Engine.Authenticate].
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	p, err := e.flows.Validate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	principal := fromPrincipalRecord(p)
	return &principal, nil
}

// Authenticate validates accessToken and binds the principal to the
// session carried by ctx. It fails with [ErrUnauthorizedNoSession] when ctx
// has no session.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	sc, ok := SessionFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorizedNoSession
	}
	p, err := e.ValidateAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	sc.Bind(*p)
	return p, nil
}

// Logout clears the principal bound to ctx. Tokens are stateless and stay
// valid until they expire: the same access token presented on another
// request still authenticates.
func (e *Engine) Logout(ctx context.Context) {
	if !e.ready() {
		return
	}
	e.flows.Logout(ctx)
}

// ChangePassword re-verifies oldPassword for the session principal and
// stores a hash of newPassword. The stored hash is untouched on any failure.
func (e *Engine) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := e.flows.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		e.logger.Debug("password change rejected", zap.Error(err))
		return err
	}
	return nil
}

// CurrentAccount re-reads the session principal's account from the store.
func (e *Engine) CurrentAccount(ctx context.Context) (*AccountSummary, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	rec, err := e.flows.CurrentAccount(ctx)
	if err != nil {
		return nil, err
	}
	summary := fromAccountRecord(rec).Summary()
	return &summary, nil
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toTokenPair(res *internalflows.TokenPairResult) *TokenPair {
	return &TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Account:      fromAccountRecord(res.Account).Summary(),
	}
}

func toAccountRecord(a Account) internalflows.AccountRecord {
	return internalflows.AccountRecord{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
		Department:   a.Department,
		Active:       a.Active,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func fromAccountRecord(r internalflows.AccountRecord) Account {
	return Account{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Department:   r.Department,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func fromPrincipalRecord(p internalflows.PrincipalRecord) Principal {
	return Principal{
		AccountID: p.AccountID,
		Email:     p.Email,
		Name:      p.Name,
		Roles:     p.Roles,
	}
}

func toPrincipalRecord(p Principal) internalflows.PrincipalRecord {
	return internalflows.PrincipalRecord{
		AccountID: p.AccountID,
		Email:     p.Email,
		Name:      p.Name,
		Roles:     p.Roles,
	}
}
