package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledNoIncrement(t *testing.T) {
	m := New(false, false)
	m.Inc(LoginSuccess)

	if got := m.Value(LoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(LoginSuccess)
	m.Observe(ValidateLatency, time.Millisecond)
	if m.Value(LoginSuccess) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatal("expected nil metrics to record nothing")
	}
}

func TestEnabledIncrement(t *testing.T) {
	m := New(true, false)
	m.Inc(RegisterSuccess)
	m.Inc(RegisterSuccess)
	m.Inc(RegisterSuccess)

	if got := m.Value(RegisterSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestConcurrentIncrementSafe(t *testing.T) {
	m := New(true, false)

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(RefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(RefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestHistogramBucketCorrectness(t *testing.T) {
	m := New(true, true)

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	var total time.Duration
	for _, d := range observations {
		m.Observe(ValidateLatency, d)
		total += d
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[ValidateLatency]
	if len(buckets) != BucketCount {
		t.Fatalf("expected %d buckets, got %d", BucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if got := snap.HistogramSums[ValidateLatency]; got != uint64(total) {
		t.Fatalf("expected sum %d, got %d", total, got)
	}
}

func TestObserveIgnoresNonHistogramIDs(t *testing.T) {
	m := New(true, true)
	m.Observe(LoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[LoginSuccess]; ok {
		t.Fatal("expected no histogram for a counter id")
	}
	if _, ok := snap.Counters[ValidateLatency]; ok {
		t.Fatal("expected latency slot to be excluded from counters")
	}
}
