package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newThrottledEngine(t *testing.T, cfg Config, rdb redis.UniversalClient) *Engine {
	t.Helper()

	engine, err := New().WithConfig(cfg).WithUserStore(newMockUserStore()).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestLoginThrottleBlocksAfterBudget(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.MaxLoginAttempts = 3
	cfg.Security.LoginCooldownDuration = time.Minute
	cfg.Metrics.Enabled = true
	engine := newThrottledEngine(t, cfg, rdb)
	registerTestAccount(t, engine, "throttle@example.com", "right-password")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, "throttle@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := engine.Login(ctx, "throttle@example.com", "wrong-password"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited once budget is spent, got %v", err)
	}
	if _, err := engine.Login(ctx, "throttle@example.com", "right-password"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("correct password during cooldown: expected ErrLoginRateLimited, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLoginRateLimited]; got != 2 {
		t.Fatalf("expected 2 rate-limited logins, got %d", got)
	}

	mr.FastForward(time.Minute + time.Second)
	if _, err := engine.Login(ctx, "throttle@example.com", "right-password"); err != nil {
		t.Fatalf("login after cooldown: %v", err)
	}
}

func TestSuccessfulLoginResetsThrottle(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.MaxLoginAttempts = 3
	engine := newThrottledEngine(t, cfg, rdb)
	registerTestAccount(t, engine, "reset@example.com", "right-password")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(ctx, "reset@example.com", "wrong-password")
	}
	if _, err := engine.Login(ctx, "reset@example.com", "right-password"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if mr.Exists("ac:login:e:reset@example.com") {
		t.Fatal("login counter not cleared after success")
	}
}

func TestIPThrottleIsSharedAcrossEmails(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.EnableIPThrottle = true
	cfg.Security.MaxLoginAttempts = 2
	engine := newThrottledEngine(t, cfg, rdb)
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	_, _ = engine.Login(ctx, "one@example.com", "wrong-password")
	_, _ = engine.Login(ctx, "two@example.com", "wrong-password")
	if _, err := engine.Login(ctx, "three@example.com", "wrong-password"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited from the IP budget, got %v", err)
	}

	other := WithClientIP(context.Background(), "198.51.100.1")
	if _, err := engine.Login(other, "four@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("other IP should not be throttled, got %v", err)
	}
}

func TestRefreshThrottle(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableRefreshThrottle = true
	cfg.Security.MaxRefreshAttempts = 2
	engine := newThrottledEngine(t, cfg, rdb)
	pair := registerTestAccount(t, engine, "refresh@example.com", "refresh-password")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
			t.Fatalf("refresh %d: %v", i+1, err)
		}
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("expected ErrRefreshRateLimited, got %v", err)
	}
}

func TestThrottleFailsOpenWhenRedisIsDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	engine := newThrottledEngine(t, cfg, rdb)
	registerTestAccount(t, engine, "open@example.com", "open-password")

	mr.Close()
	if _, err := engine.Login(context.Background(), "open@example.com", "open-password"); err != nil {
		t.Fatalf("login should proceed without redis, got %v", err)
	}
}

func TestBuildRequiresRedisForThrottles(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true

	if _, err := New().WithConfig(cfg).WithUserStore(newMockUserStore()).Build(); err == nil {
		t.Fatal("expected error without redis client")
	}
}
