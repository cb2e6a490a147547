package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments KEYS[1] and starts its window on the first hit.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// window is one fixed-window budget.
type window struct {
	limit int64
	ttl   time.Duration
}

// Limiter enforces per-email and per-IP login budgets and a per-account
// refresh budget using Redis counters.
type Limiter struct {
	rdb     redis.UniversalClient
	login   window
	refresh window
	byIP    bool
	perAcct bool
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		rdb:     rdb,
		login:   window{limit: int64(cfg.MaxLoginAttempts), ttl: cfg.LoginCooldownDuration},
		refresh: window{limit: int64(cfg.MaxRefreshAttempts), ttl: cfg.RefreshCooldownDuration},
		byIP:    cfg.EnableIPThrottle,
		perAcct: cfg.EnableRefreshThrottle,
	}
}

func (l *Limiter) loginKeys(email, ip string) []string {
	keys := []string{loginEmailKey(email)}
	if l.byIP && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	return keys
}

// CheckLogin reports ErrRateLimited when the email, or the IP if IP
// throttling is on, has already spent its failure budget. It does not count.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	for _, key := range l.loginKeys(email, ip) {
		n, err := l.count(ctx, key)
		if err != nil {
			return err
		}
		if n > l.login.limit {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records a failed login attempt for the email+IP pair.
// The attempt that exceeds the budget already returns ErrRateLimited.
func (l *Limiter) IncrementLogin(ctx context.Context, email, ip string) error {
	for _, key := range l.loginKeys(email, ip) {
		n, err := l.hit(ctx, key, l.login.ttl)
		if err != nil {
			return err
		}
		if n > l.login.limit {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetLogin clears the failed-login counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	if err := l.rdb.Del(ctx, l.loginKeys(email, ip)...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// CheckRefresh counts one refresh exchange for the account and fails with
// ErrRateLimited once the window budget is exceeded.
func (l *Limiter) CheckRefresh(ctx context.Context, accountID int64) error {
	if !l.perAcct {
		return nil
	}
	n, err := l.hit(ctx, refreshKey(accountID), l.refresh.ttl)
	if err != nil {
		return err
	}
	if n > l.refresh.limit {
		return ErrRateLimited
	}
	return nil
}

// LoginAttempts returns the failed-attempt counter for an email. A missing
// key reads as zero.
func (l *Limiter) LoginAttempts(ctx context.Context, email string) (int, error) {
	n, err := l.count(ctx, loginEmailKey(email))
	if err != nil {
		return 0, err
	}
	return int(max(n, 0)), nil
}

func (l *Limiter) count(ctx context.Context, key string) (int64, error) {
	n, err := l.rdb.Get(ctx, key).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, unavailable(err)
	}
	return n, nil
}

func (l *Limiter) hit(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := hitScript.Run(ctx, l.rdb, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
