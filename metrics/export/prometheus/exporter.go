package prometheus

import (
	"net/http"

	"github.com/eamcap/authcore"
	"github.com/eamcap/authcore/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter is a [prom.Collector] over the engine counters. Every
// scrape reads one fresh snapshot.
type PrometheusExporter struct {
	source     metricsSource
	counters   []*prom.Desc
	histograms []*prom.Desc
	dropped    *prom.Desc
}

var _ prom.Collector = (*PrometheusExporter)(nil)

// NewPrometheusExporter creates an exporter that reads from engine.
func NewPrometheusExporter(engine *authcore.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

// NewPrometheusExporterFromSource creates an exporter from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:     source,
		counters:   make([]*prom.Desc, len(internaldefs.CounterDefs)),
		histograms: make([]*prom.Desc, len(internaldefs.HistogramDefs)),
		dropped:    prom.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for i, def := range internaldefs.CounterDefs {
		p.counters[i] = prom.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		p.histograms[i] = prom.NewDesc(def.Name, def.Help, nil, nil)
	}
	return p
}

// Describe implements [prom.Collector].
func (p *PrometheusExporter) Describe(ch chan<- *prom.Desc) {
	for _, d := range p.counters {
		ch <- d
	}
	for _, d := range p.histograms {
		ch <- d
	}
	ch <- p.dropped
}

// Collect implements [prom.Collector] from one engine snapshot.
func (p *PrometheusExporter) Collect(ch chan<- prom.Metric) {
	if p == nil || p.source == nil {
		return
	}

	snapshot := p.source.MetricsSnapshot()
	for i, def := range internaldefs.CounterDefs {
		ch <- prom.MustNewConstMetric(p.counters[i], prom.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[j]
		}
		ch <- prom.MustNewConstHistogram(
			p.histograms[i],
			cumulative[len(cumulative)-1],
			internaldefs.SumSeconds(snapshot.HistogramSums[def.ID]),
			buckets,
		)
	}

	ch <- prom.MustNewConstMetric(p.dropped, prom.CounterValue, float64(p.source.AuditDropped()))
}

// Handler serves the exporter from a private registry, so nothing is added
// to the global default registry.
func (p *PrometheusExporter) Handler() http.Handler {
	reg := prom.NewRegistry()
	reg.MustRegister(p)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
