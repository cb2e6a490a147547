package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eamcap/authcore"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestCollectCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess: 7,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[authcore.MetricID]uint64{
				authcore.MetricValidateLatency: 1500000000,
			},
		},
		dropped: 2,
	})

	expected := `
# HELP authcore_login_success_total Successful login attempts.
# TYPE authcore_login_success_total counter
authcore_login_success_total 7
# HELP authcore_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE authcore_audit_dropped_total counter
authcore_audit_dropped_total 2
# HELP authcore_validate_latency_seconds Access token validation latency.
# TYPE authcore_validate_latency_seconds histogram
authcore_validate_latency_seconds_bucket{le="0.005"} 1
authcore_validate_latency_seconds_bucket{le="0.01"} 3
authcore_validate_latency_seconds_bucket{le="0.025"} 6
authcore_validate_latency_seconds_bucket{le="0.05"} 10
authcore_validate_latency_seconds_bucket{le="0.1"} 15
authcore_validate_latency_seconds_bucket{le="0.25"} 21
authcore_validate_latency_seconds_bucket{le="0.5"} 28
authcore_validate_latency_seconds_bucket{le="+Inf"} 36
authcore_validate_latency_seconds_sum 1.5
authcore_validate_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"authcore_login_success_total",
		"authcore_audit_dropped_total",
		"authcore_validate_latency_seconds",
	)
	if err != nil {
		t.Fatalf("unexpected collection: %v", err)
	}
}

func TestCollectEmitsEveryDefinedSeries(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: authcore.MetricsSnapshot{}})

	// 17 counters, 1 histogram, 1 audit counter.
	if got := testutil.CollectAndCount(exp); got != 19 {
		t.Fatalf("expected 19 series, got %d", got)
	}
	if problems, err := testutil.CollectAndLint(exp); err != nil || len(problems) != 0 {
		t.Fatalf("lint: %v %v", problems, err)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{authcore.MetricLoginSuccess: 1},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "authcore_login_success_total 1") {
		t.Fatalf("missing counter in body:\n%s", body)
	}
}
