package conversation

import (
	"context"

	"github.com/wolfman30/medcompanion-ai/internal/compliance"
	"github.com/wolfman30/medcompanion-ai/internal/observability/metrics"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

// MetricsRecorder reports outcomes to Prometheus.
type MetricsRecorder struct {
	metrics *metrics.QualityMetrics
}

func NewMetricsRecorder(m *metrics.QualityMetrics) *MetricsRecorder {
	return &MetricsRecorder{metrics: m}
}

func (r *MetricsRecorder) RecordReply(_ context.Context, outcome ReplyOutcome) {
	if r == nil {
		return
	}
	m := r.metrics
	m.ObserveEvaluation(outcome.EvaluationErr != nil)
	if outcome.EvaluationErr == nil {
		for _, criterion := range outcome.Verdict.FailedCriteria() {
			m.ObserveCriterionFailure(criterion)
		}
	}

	switch {
	case outcome.Revised:
		m.ObserveReply(metrics.ReplyRevised)
	case outcome.NeedsRevision:
		m.ObserveReply(metrics.ReplyRevisionFailed)
	default:
		m.ObserveReply(metrics.ReplyAccepted)
	}

	m.ObserveStageLatency("generate", outcome.GenerationLatency.Seconds())
	m.ObserveStageLatency("evaluate", outcome.EvaluationLatency.Seconds())
	if outcome.NeedsRevision {
		m.ObserveStageLatency("revise", outcome.RevisionLatency.Seconds())
	}
}

type qualityAuditor interface {
	LogQualityReview(ctx context.Context, review compliance.QualityReview) error
}

// AuditRecorder writes each outcome to the audit trail. Write failures are
// logged and never affect the reply.
type AuditRecorder struct {
	audit  qualityAuditor
	logger *logging.Logger
}

func NewAuditRecorder(audit qualityAuditor, logger *logging.Logger) *AuditRecorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuditRecorder{audit: audit, logger: logger}
}

func (r *AuditRecorder) RecordReply(ctx context.Context, outcome ReplyOutcome) {
	if r == nil || r.audit == nil {
		return
	}
	review := compliance.QualityReview{
		UserID:          outcome.UserID,
		NeedsRevision:   outcome.NeedsRevision,
		Revised:         outcome.Revised,
		EvaluationError: outcome.EvaluationErr,
		RevisionError:   outcome.RevisionErr,
	}
	if outcome.EvaluationErr == nil {
		review.Deficiencies = outcome.Verdict.Deficiencies()
	}
	if err := r.audit.LogQualityReview(ctx, review); err != nil {
		r.logger.Warn("failed to write quality audit event", "user_id", outcome.UserID, "error", err)
	}
}

// Recorders fans an outcome out to every recorder in order.
type Recorders []QualityRecorder

func (rs Recorders) RecordReply(ctx context.Context, outcome ReplyOutcome) {
	for _, r := range rs {
		if r != nil {
			r.RecordReply(ctx, outcome)
		}
	}
}
