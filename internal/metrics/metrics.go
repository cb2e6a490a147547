package metrics

import (
	"sync/atomic"
	"time"
)

// ID names one counter or histogram slot.
type ID uint16

const (
	LoginSuccess ID = iota
	LoginFailure
	LoginInactive
	LoginRateLimited
	RegisterSuccess
	RegisterDuplicate
	RegisterRejected
	RefreshSuccess
	RefreshFailure
	RefreshRateLimited
	Logout
	PasswordChangeSuccess
	PasswordChangeInvalidOld
	PasswordChangeRejected
	PasswordHashUpgraded
	ValidateSuccess
	ValidateFailure
	ValidateLatency
	idCount
)

// Count is the number of defined IDs.
const Count = int(idCount)

const (
	// BucketCount is the number of latency buckets, the last being +Inf.
	BucketCount   = 8
	cacheLineSize = 64
)

type histogram struct {
	buckets [BucketCount]uint64
	sumNS   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and latency histograms.
// The zero value and a nil pointer both record nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy. Histogram buckets are non-cumulative;
// HistogramSums are in nanoseconds.
type Snapshot struct {
	Counters      map[ID]uint64
	Histograms    map[ID][]uint64
	HistogramSums map[ID]uint64
}

func New(enabled, enableLatency bool) *Metrics {
	return &Metrics{
		enabled:       enabled,
		enableLatency: enabled && enableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d for a latency metric. Only ValidateLatency is a histogram.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enableLatency || id != ValidateLatency {
		return
	}
	if d < 0 {
		d = 0
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&m.histograms[id].sumNS, uint64(d))
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Counters:      map[ID]uint64{},
		Histograms:    map[ID][]uint64{},
		HistogramSums: map[ID]uint64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := ID(0); id < idCount; id++ {
		if id == ValidateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, BucketCount)
		for i := 0; i < BucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[ValidateLatency].buckets[i])
		}
		s.Histograms[ValidateLatency] = buckets
		s.HistogramSums[ValidateLatency] = atomic.LoadUint64(&m.histograms[ValidateLatency].sumNS)
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
