package authcore

import (
	"context"
	"testing"
)

func TestMetricsCountOutcomes(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	engine := newTestEngine(t, cfg, newMockUserStore(), nil)
	ctx := context.Background()

	pair := registerTestAccount(t, engine, "m@example.com", "metric-password")
	_, _ = engine.Register(ctx, RegisterRequest{Email: "m@example.com", Password: "metric-password"})
	_, _ = engine.Login(ctx, "m@example.com", "wrong-password")
	_, _ = engine.Login(ctx, "m@example.com", "metric-password")
	_, _ = engine.Refresh(ctx, pair.RefreshToken)
	_, _ = engine.Refresh(ctx, pair.AccessToken)
	_, _ = engine.ValidateAccess(ctx, pair.AccessToken)
	_, _ = engine.ValidateAccess(ctx, "garbage")

	snap := engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricRegisterSuccess:   1,
		MetricRegisterDuplicate: 1,
		MetricLoginFailure:      1,
		MetricLoginSuccess:      1,
		MetricRefreshSuccess:    1,
		MetricRefreshFailure:    1,
		MetricValidateSuccess:   1,
		MetricValidateFailure:   1,
	}
	for id, n := range want {
		if got := snap.Counters[id]; got != n {
			t.Fatalf("metric %d = %d, want %d", id, got, n)
		}
	}

	var observed uint64
	for _, c := range snap.Histograms[MetricValidateLatency] {
		observed += c
	}
	if observed != 2 {
		t.Fatalf("expected 2 latency samples, got %d", observed)
	}
}

func TestMetricsDisabledSnapshotIsEmpty(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newMockUserStore(), nil)
	registerTestAccount(t, engine, "n@example.com", "metric-password")

	for id, v := range engine.MetricsSnapshot().Counters {
		if v != 0 {
			t.Fatalf("metric %d = %d with metrics disabled", id, v)
		}
	}
}
