package extraction

import (
	"context"
	"fmt"

	"github.com/wolfman30/medcompanion-ai/internal/archive"
	"github.com/wolfman30/medcompanion-ai/internal/observability/metrics"
	"github.com/wolfman30/medcompanion-ai/internal/ocr"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("medcompanion.internal.extraction")

// ScanArchiver keeps a copy of each processed label.
type ScanArchiver interface {
	ArchiveScan(ctx context.Context, image []byte, record archive.ScanRecord) error
}

// FallbackAuditor records extractions that degraded to the error record.
type FallbackAuditor interface {
	LogExtractionFallback(ctx context.Context, imageDigest string, cause error) error
}

// Service runs image -> text -> medication record.
type Service struct {
	recognizer ocr.Recognizer
	extractor  Extractor
	logger     *logging.Logger

	cache    Cache
	archiver ScanArchiver
	auditor  FallbackAuditor
	metrics  *metrics.QualityMetrics
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

func WithCache(cache Cache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

func WithArchiver(archiver ScanArchiver) ServiceOption {
	return func(s *Service) { s.archiver = archiver }
}

func WithAuditor(auditor FallbackAuditor) ServiceOption {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *metrics.QualityMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(recognizer ocr.Recognizer, extractor Extractor, logger *logging.Logger, opts ...ServiceOption) *Service {
	if recognizer == nil {
		panic("extraction: recognizer cannot be nil")
	}
	if extractor == nil {
		panic("extraction: extractor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{recognizer: recognizer, extractor: extractor, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ExtractFromImage returns the recognized text and the medication record.
// Only a recognition failure is returned as an error; extractor failures
// yield the error record. Cache, archive and audit failures are logged.
func (s *Service) ExtractFromImage(ctx context.Context, img ocr.Image) (Extraction, error) {
	ctx, span := tracer.Start(ctx, "extraction.extract_from_image")
	defer span.End()

	digest := archive.Digest(img.Data)
	span.SetAttributes(
		attribute.String("medcompanion.image_sha256", digest),
		attribute.Int("medcompanion.image_bytes", len(img.Data)),
	)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, digest)
		if err != nil {
			s.logger.Warn("extraction cache lookup failed", "image_sha256", digest, "error", err)
		}
		if ok {
			span.SetAttributes(attribute.Bool("medcompanion.cache_hit", true))
			s.metrics.ObserveExtraction(metrics.ExtractionCacheHit)
			return cached, nil
		}
	}

	text, err := s.recognizer.RecognizeText(ctx, img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recognition failed")
		s.metrics.ObserveExtraction(metrics.ExtractionOCRError)
		s.logger.Error("text recognition failed", "image_sha256", digest, "error", err)
		return Extraction{}, fmt.Errorf("extraction: recognize text: %w", err)
	}
	s.logger.Debug("text recognized", "image_sha256", digest, "text_preview", logging.Truncate(text, 100))

	result := s.extractor.Extract(ctx, text)
	out := Extraction{ExtractedText: text, MedicationInfo: result.Info}

	if result.Err != nil {
		span.SetAttributes(attribute.Bool("medcompanion.extraction_fallback", true))
		s.metrics.ObserveExtraction(metrics.ExtractionFallback)
		if s.auditor != nil {
			if err := s.auditor.LogExtractionFallback(ctx, digest, result.Err); err != nil {
				s.logger.Warn("failed to audit extraction fallback", "image_sha256", digest, "error", err)
			}
		}
	} else {
		s.metrics.ObserveExtraction(metrics.ExtractionOK)
	}

	if s.archiver != nil {
		record := archive.ScanRecord{
			ImageSHA256:   digest,
			ImageFormat:   string(img.Format),
			ExtractedText: text,
			Fields:        result.Info.Fields(),
			Fallback:      result.Err != nil,
		}
		if err := s.archiver.ArchiveScan(ctx, img.Data, record); err != nil {
			s.logger.Warn("failed to archive scan", "image_sha256", digest, "error", err)
		}
	}

	if s.cache != nil && result.Err == nil {
		if err := s.cache.Set(ctx, digest, out); err != nil {
			s.logger.Warn("failed to cache extraction", "image_sha256", digest, "error", err)
		}
	}

	return out, nil
}
