package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter records span counts and durations as Prometheus
// metrics, keyed by event kind.
type MetricsExporter struct {
	cfg      ExporterConfig
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsExporter registers its collectors against reg (typically
// prometheus.DefaultRegisterer, or a dedicated registry in tests).
func NewMetricsExporter(reg prometheus.Registerer, cfg ExporterConfig) (*MetricsExporter, error) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarmrt",
		Name:      "spans_total",
		Help:      "Total number of orchestrator spans recorded, by event kind.",
	}, []string{"kind"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "swarmrt",
		Name:      "span_duration_seconds",
		Help:      "Span duration in seconds, by event kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	if err := reg.Register(total); err != nil {
		return nil, err
	}
	if err := reg.Register(duration); err != nil {
		return nil, err
	}

	return &MetricsExporter{cfg: cfg, total: total, duration: duration}, nil
}

func (e *MetricsExporter) Name() string { return "metrics" }

func (e *MetricsExporter) Config() ExporterConfig { return e.cfg }

func (e *MetricsExporter) Export(span Span) error {
	kind := string(span.Kind)
	e.total.WithLabelValues(kind).Inc()
	e.duration.WithLabelValues(kind).Observe(span.EndTime.Sub(span.StartTime).Seconds())
	return nil
}
