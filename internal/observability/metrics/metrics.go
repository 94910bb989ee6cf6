package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reply outcomes.
const (
	ReplyAccepted       = "accepted"
	ReplyRevised        = "revised"
	ReplyRevisionFailed = "revision_failed"
)

// Extraction statuses.
const (
	ExtractionOK       = "ok"
	ExtractionFallback = "fallback"
	ExtractionCacheHit = "cache_hit"
	ExtractionOCRError = "ocr_error"
)

// QualityMetrics exposes counters/histograms for the reply quality gate and
// medication extraction.
type QualityMetrics struct {
	repliesTotal      *prometheus.CounterVec
	evaluationsTotal  *prometheus.CounterVec
	criterionFailures *prometheus.CounterVec
	extractionsTotal  *prometheus.CounterVec
	stageLatency      *prometheus.HistogramVec
}

func NewQualityMetrics(reg prometheus.Registerer) *QualityMetrics {
	m := &QualityMetrics{
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcompanion",
			Subsystem: "quality",
			Name:      "replies_total",
			Help:      "Chatbot replies by quality-gate outcome",
		}, []string{"outcome"}),
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcompanion",
			Subsystem: "quality",
			Name:      "evaluations_total",
			Help:      "Reply evaluations by status",
		}, []string{"status"}),
		criterionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcompanion",
			Subsystem: "quality",
			Name:      "criterion_failures_total",
			Help:      "Rubric criteria flagged by the evaluator",
		}, []string{"criterion"}),
		extractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcompanion",
			Subsystem: "extraction",
			Name:      "requests_total",
			Help:      "Medication label extractions by status",
		}, []string{"status"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medcompanion",
			Subsystem: "quality",
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.repliesTotal, m.evaluationsTotal, m.criterionFailures, m.extractionsTotal, m.stageLatency)
	return m
}

func (m *QualityMetrics) ObserveReply(outcome string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(outcome).Inc()
}

// ObserveEvaluation counts an evaluation; failedOpen marks a fail-open verdict.
func (m *QualityMetrics) ObserveEvaluation(failedOpen bool) {
	if m == nil {
		return
	}
	status := "ok"
	if failedOpen {
		status = "fail_open"
	}
	m.evaluationsTotal.WithLabelValues(status).Inc()
}

func (m *QualityMetrics) ObserveCriterionFailure(criterion string) {
	if m == nil {
		return
	}
	m.criterionFailures.WithLabelValues(criterion).Inc()
}

func (m *QualityMetrics) ObserveExtraction(status string) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(status).Inc()
}

func (m *QualityMetrics) ObserveStageLatency(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(seconds)
}
