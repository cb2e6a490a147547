package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/eamcap/authcore"
	"github.com/eamcap/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument's value from a snapshot.
type observeFunc func(metric.Observer, authcore.MetricsSnapshot)

// OTelExporter publishes engine counters through asynchronous OTel
// instruments. Each histogram becomes one cumulative gauge per bucket
// plus a count gauge and a sum gauge in seconds.
type OTelExporter struct {
	source       metricsSource
	observers    []observeFunc
	instruments  []metric.Observable
	registration metric.Registration
}

// NewOTelExporter registers instruments for engine on meter.
func NewOTelExporter(meter metric.Meter, engine *authcore.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for any snapshot source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	if err := e.addCounters(meter); err != nil {
		return nil, err
	}
	if err := e.addHistograms(meter); err != nil {
		return nil, err
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.add(dropped, func(o metric.Observer, _ authcore.MetricsSnapshot) {
		o.ObserveInt64(dropped, int64(source.AuditDropped()))
	})

	e.registration, err = meter.RegisterCallback(e.collect, e.instruments...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) add(ins metric.Observable, fn observeFunc) {
	e.instruments = append(e.instruments, ins)
	e.observers = append(e.observers, fn)
}

func (e *OTelExporter) addCounters(meter metric.Meter) error {
	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return fmt.Errorf("otel: %s: %w", def.Name, err)
		}
		e.add(ins, func(o metric.Observer, s authcore.MetricsSnapshot) {
			o.ObserveInt64(ins, int64(s.Counters[id]))
		})
	}
	return nil
}

func (e *OTelExporter) addHistograms(meter metric.Meter) error {
	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			idx := i
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return fmt.Errorf("otel: %s: %w", name, err)
			}
			e.add(ins, func(o metric.Observer, s authcore.MetricsSnapshot) {
				o.ObserveInt64(ins, int64(cumulative(s, id)[idx]))
			})
		}

		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return fmt.Errorf("otel: %s_count: %w", def.Name, err)
		}
		e.add(count, func(o metric.Observer, s authcore.MetricsSnapshot) {
			buckets := cumulative(s, id)
			o.ObserveInt64(count, int64(buckets[len(buckets)-1]))
		})

		sum, err := meter.Float64ObservableGauge(def.Name+"_sum",
			metric.WithDescription("Histogram sample sum."), metric.WithUnit("s"))
		if err != nil {
			return fmt.Errorf("otel: %s_sum: %w", def.Name, err)
		}
		e.add(sum, func(o metric.Observer, s authcore.MetricsSnapshot) {
			o.ObserveFloat64(sum, internaldefs.SumSeconds(s.HistogramSums[id]))
		})
	}
	return nil
}

func cumulative(s authcore.MetricsSnapshot, id authcore.MetricID) []uint64 {
	buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(s.Histograms[id]))
	return buckets[:]
}

func (e *OTelExporter) collect(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, fn := range e.observers {
		fn(o, snapshot)
	}
	return nil
}

// Close unregisters the callback. It is safe on a nil exporter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
