package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage pipeline.
type Metrics struct {
	AlertsTotal       *prometheus.CounterVec
	VerdictsTotal     *prometheus.CounterVec
	FailuresTotal     *prometheus.CounterVec
	InferenceTotal    *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	TriageDuration    *prometheus.HistogramVec
	AnalysisBytes     prometheus.Histogram
	SinkErrorsTotal   *prometheus.CounterVec
	SourceErrorsTotal *prometheus.CounterVec
	LastRunTimestamp  prometheus.Gauge
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_alerts_received_total",
			Help: "Alerts entering the triage pipeline by source.",
		}, []string{"source"}),
		VerdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_verdicts_total",
			Help: "Completed triages by verdict.",
		}, []string{"verdict"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_triage_failures_total",
			Help: "Triages that ended without a verdict, by error kind.",
		}, []string{"kind"}),
		InferenceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_inference_calls_total",
			Help: "Inference calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		InferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "argus_inference_duration_seconds",
			Help:    "Duration of individual inference calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"provider"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "argus_triage_duration_seconds",
			Help:    "End-to-end triage duration per alert in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"status"}),
		AnalysisBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "argus_analysis_bytes",
			Help:    "Size of generated analysis text in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B .. ~1MB
		}),
		SinkErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_sink_errors_total",
			Help: "Failed outcome reports by sink.",
		}, []string{"sink"}),
		SourceErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_source_errors_total",
			Help: "Alert acquisition failures by error kind.",
		}, []string{"kind"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "argus_last_triage_timestamp_seconds",
			Help: "Unix time of the most recently completed triage.",
		}),
	}

	reg.MustRegister(
		m.AlertsTotal,
		m.VerdictsTotal,
		m.FailuresTotal,
		m.InferenceTotal,
		m.InferenceDuration,
		m.TriageDuration,
		m.AnalysisBytes,
		m.SinkErrorsTotal,
		m.SourceErrorsTotal,
		m.LastRunTimestamp,
	)

	return m
}

// ObserveSourceError counts a failed alert acquisition.
func (m *Metrics) ObserveSourceError(err error) {
	m.SourceErrorsTotal.WithLabelValues(string(KindOf(err))).Inc()
}

// Hooks returns pipeline Hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnReceived: func(source string) {
			m.AlertsTotal.WithLabelValues(source).Inc()
		},
		OnInference: func(provider string, duration float64, kind ErrorKind) {
			outcome := "success"
			if kind != KindNone {
				outcome = string(kind)
			}
			m.InferenceTotal.WithLabelValues(provider, outcome).Inc()
			m.InferenceDuration.WithLabelValues(provider).Observe(duration)
		},
		OnComplete: func(o *Outcome) {
			m.TriageDuration.WithLabelValues(string(o.Status)).Observe(o.Duration)
			m.LastRunTimestamp.Set(float64(o.CompletedAt.Unix()))
			if o.Failed() {
				m.FailuresTotal.WithLabelValues(string(o.ErrorKind)).Inc()
				return
			}
			m.VerdictsTotal.WithLabelValues(string(o.Verdict)).Inc()
			m.AnalysisBytes.Observe(float64(len(o.Analysis)))
		},
		OnSinkError: func(sink string) {
			m.SinkErrorsTotal.WithLabelValues(sink).Inc()
		},
	}
}
