// Package metrics holds the engine's counters and its validation latency
// histogram.
//
// Every counter lives in its own cache-line-padded slot and is bumped with an
// atomic add, so recording never allocates or takes a lock. The histogram has
// eight fixed buckets, from 5ms up to +Inf, plus a running sum in nanoseconds.
//
// [Metrics.Snapshot] copies the current values. Exporters under
// metrics/export/ read snapshots; this package does no I/O and keeps no
// global registry.
package metrics
