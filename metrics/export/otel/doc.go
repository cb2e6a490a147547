// Package otel provides OpenTelemetry metric bindings for authcore counters
// and the validation latency histogram.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter and a
// gauge per histogram bucket. A single callback reads
// [authcore.Engine.MetricsSnapshot] on each collection cycle. Callers own the
// MeterProvider.
package otel
