package bootstrap

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medcompanion-ai/internal/archive"
	"github.com/wolfman30/medcompanion-ai/internal/compliance"
	appconfig "github.com/wolfman30/medcompanion-ai/internal/config"
	"github.com/wolfman30/medcompanion-ai/internal/conversation"
	"github.com/wolfman30/medcompanion-ai/internal/extraction"
	"github.com/wolfman30/medcompanion-ai/internal/observability/metrics"
	"github.com/wolfman30/medcompanion-ai/internal/ocr"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

// Resources are the optional backing stores. Any of them may be nil.
type Resources struct {
	Redis   *redis.Client
	AuditDB *sql.DB
	Archive *archive.Store
	Metrics *metrics.QualityMetrics
}

// Services are the two request-facing pipelines.
type Services struct {
	Replies    *conversation.Orchestrator
	Extraction *extraction.Service
}

// BuildServices wires the reply pipeline and the label extraction pipeline
// onto the given generators and resources.
func BuildServices(cfg *appconfig.Config, gens Generators, res Resources, logger *logging.Logger) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if gens.Reply == nil || gens.OCR == nil {
		return nil, fmt.Errorf("bootstrap: reply and OCR generators are required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	persona, err := conversation.LoadPersona(cfg.PersonaPromptFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	var audit *compliance.AuditService
	if res.AuditDB != nil {
		audit = compliance.NewAuditService(res.AuditDB)
		logger.Info("quality audit trail enabled")
	}

	recorders := conversation.Recorders{conversation.NewMetricsRecorder(res.Metrics)}
	if audit != nil {
		recorders = append(recorders, conversation.NewAuditRecorder(audit, logger))
	}

	replies := conversation.NewOrchestrator(
		gens.Reply,
		conversation.NewLLMEvaluator(gens.Reply, logger),
		conversation.NewLLMRevisor(gens.Reply, logger),
		logger,
		conversation.WithPersona(persona),
		conversation.WithRecorder(recorders),
	)

	opts := []extraction.ServiceOption{extraction.WithMetrics(res.Metrics)}
	if res.Redis != nil {
		opts = append(opts, extraction.WithCache(extraction.NewRedisCache(res.Redis, cfg.ExtractionCacheTTL)))
		logger.Info("extraction cache enabled", "ttl", cfg.ExtractionCacheTTL.String())
	}
	if res.Archive.Enabled() {
		opts = append(opts, extraction.WithArchiver(res.Archive))
	}
	if audit != nil {
		opts = append(opts, extraction.WithAuditor(audit))
	}

	labels := extraction.NewService(
		ocr.NewVisionRecognizer(gens.OCR, cfg.OCRProvider),
		extraction.NewLLMExtractor(gens.Reply, logger),
		logger,
		opts...,
	)

	return &Services{Replies: replies, Extraction: labels}, nil
}
