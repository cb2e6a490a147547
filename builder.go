package authcore

import (
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/eamcap/authcore/internal/audit"
	internalmetrics "github.com/eamcap/authcore/internal/metrics"
	"github.com/eamcap/authcore/internal/rate"
	"github.com/eamcap/authcore/jwt"
	"github.com/eamcap/authcore/password"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     UserStore
	hasher    PasswordHasher
	auditSink AuditSink
	logger    *zap.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is deep-copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSigningKey sets the HS256 secret.
func (b *Builder) WithSigningKey(key []byte) *Builder {
	b.config.JWT.SigningMethod = string(jwt.MethodHS256)
	b.config.JWT.PrivateKey = cloneBytes(key)
	return b
}

// WithRedis supplies the client used by the login and refresh throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the account persistence collaborator. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithPasswordHasher overrides the hasher derived from Config.Password.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink sets the destination of audit events. Audit.Enabled must
// also be true for events to flow.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for issuance and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled turns the engine counters on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records ValidateAccess latency. It needs metrics enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("user store required")
	}
	if (cfg.Security.EnableLoginThrottle || cfg.Security.EnableRefreshThrottle) && b.redis == nil {
		return nil, errors.New("throttling requires redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hasher := b.hasher
	if hasher == nil {
		h, err := newConfiguredHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cloneConfig(cfg).JWT.VerifyKeys,
		Now:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	dummyHash, err := hasher.Hash("authcore-unknown-account")
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	engine := &Engine{
		config:    cfg,
		store:     b.store,
		hasher:    hasher,
		tokens:    jm,
		logger:    logger.Named("authcore"),
		now:       now,
		dummyHash: dummyHash,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: internalmetrics.New(cfg.Metrics.Enabled, cfg.Metrics.EnableLatencyHistograms),
	}
	if b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		})
	}
	engine.wireFlows()

	b.built = true
	return engine, nil
}

// newConfiguredHasher hashes with the configured algorithm and still
// verifies hashes written by the other one.
func newConfiguredHasher(cfg PasswordConfig) (*password.Mux, error) {
	bc, err := password.NewBcrypt(password.BcryptConfig{Cost: cfg.BcryptCost})
	if err != nil {
		return nil, err
	}
	ar, err := password.NewArgon2(password.Argon2Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Algorithm == PasswordAlgorithmArgon2id {
		return password.NewMux(ar, bc, ar), nil
	}
	return password.NewMux(bc, bc, ar), nil
}
