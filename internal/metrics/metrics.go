package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinytelemetry/logsift/internal/model"
)

const namespace = "logsift"

// Metrics holds the analyzer's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	RecordsCounted   *prometheus.CounterVec
	GroupsReturned   *prometheus.HistogramVec
	PayloadBytes     *prometheus.HistogramVec
	AnalysisDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analyses",
				Name:      "total",
				Help:      "Finished analysis requests by transport, format, type and outcome",
			},
			[]string{"transport", "format", "type", "outcome"},
		),

		RecordsCounted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "records",
				Name:      "counted_total",
				Help:      "Records that contributed to a count table",
			},
			[]string{"format"},
		),

		GroupsReturned: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analyses",
				Name:      "groups",
				Help:      "Distinct grouping keys per response",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 500, 1000},
			},
			[]string{"type"},
		),

		PayloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "payload",
				Name:      "bytes",
				Help:      "Size of request bodies",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
			},
			[]string{"transport"},
		),

		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analyses",
				Name:      "duration_seconds",
				Help:      "Time from end of read to response written",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"transport"},
		),
	}

	m.registry.MustRegister(
		m.AnalysesTotal,
		m.RecordsCounted,
		m.GroupsReturned,
		m.PayloadBytes,
		m.AnalysisDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RegisterActiveConnections exposes a gauge read from fn on every scrape.
func (m *Metrics) RegisterActiveConnections(transport string, fn func() int64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "connections",
			Name:        "active",
			Help:        "Sessions currently being served",
			ConstLabels: prometheus.Labels{"transport": transport},
		},
		func() float64 { return float64(fn()) },
	))
}

// Observe records one finished analysis.
func (m *Metrics) Observe(rec *model.AnalysisRecord) {
	if m == nil || rec == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(rec.Transport, rec.Format, rec.Type, rec.Outcome).Inc()
	m.PayloadBytes.WithLabelValues(rec.Transport).Observe(float64(rec.BodyBytes))
	m.AnalysisDuration.WithLabelValues(rec.Transport).Observe(rec.Duration.Seconds())

	switch rec.Outcome {
	case model.OutcomeOK, model.OutcomeNoMatch:
		m.RecordsCounted.WithLabelValues(rec.Format).Add(float64(rec.Counts.Total()))
		m.GroupsReturned.WithLabelValues(rec.Type).Observe(float64(rec.Counts.Len()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
