// Package prometheus exposes authcore counters and the validation latency
// histogram as a Prometheus collector.
//
// [NewPrometheusExporter] returns a collector that callers either register
// with their own registry or mount through [PrometheusExporter.Handler].
// Counter names are prefixed authcore_*_total; the single histogram is
// authcore_validate_latency_seconds.
package prometheus
