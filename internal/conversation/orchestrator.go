package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/medcompanion-ai/internal/llm"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("medcompanion.internal.conversation")

// ErrEmptyMessage is returned when the user message is blank.
var ErrEmptyMessage = errors.New("conversation: message is empty")

// ReplyProducer is what the HTTP layer needs from the orchestrator.
type ReplyProducer interface {
	ProduceReply(ctx context.Context, userID, message string, history History) (string, error)
}

// ReplyOutcome describes how one reply was produced.
type ReplyOutcome struct {
	UserID        string
	Verdict       Verdict
	NeedsRevision bool
	Revised       bool
	EvaluationErr error
	RevisionErr   error

	GenerationLatency time.Duration
	EvaluationLatency time.Duration
	RevisionLatency   time.Duration
}

// QualityRecorder observes completed replies. Implementations must not block.
type QualityRecorder interface {
	RecordReply(ctx context.Context, outcome ReplyOutcome)
}

// Orchestrator produces exactly one quality-checked reply per request:
// generate, evaluate, and revise only when the verdict demands it.
type Orchestrator struct {
	generator llm.TextGenerator
	evaluator Evaluator
	revisor   Revisor
	logger    *logging.Logger
	cfg       orchestratorConfig
}

var _ ReplyProducer = (*Orchestrator)(nil)

type orchestratorConfig struct {
	persona  string
	recorder QualityRecorder
	now      func() time.Time
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*orchestratorConfig)

// WithPersona overrides DefaultPersona.
func WithPersona(persona string) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if strings.TrimSpace(persona) != "" {
			cfg.persona = persona
		}
	}
}

// WithRecorder reports each outcome to recorder.
func WithRecorder(recorder QualityRecorder) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		cfg.recorder = recorder
	}
}

func withClock(now func() time.Time) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// NewOrchestrator wires the three collaborators. All of them must be safe
// for concurrent use; the orchestrator holds no per-request state.
func NewOrchestrator(generator llm.TextGenerator, evaluator Evaluator, revisor Revisor, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if generator == nil {
		panic("conversation: generator cannot be nil")
	}
	if evaluator == nil {
		panic("conversation: evaluator cannot be nil")
	}
	if revisor == nil {
		panic("conversation: revisor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg := orchestratorConfig{
		persona: DefaultPersona,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Orchestrator{
		generator: generator,
		evaluator: evaluator,
		revisor:   revisor,
		logger:    logger,
		cfg:       cfg,
	}
}

// ProduceReply returns the final reply for message. Only a failure of the
// initial generation is returned as an error; evaluation and revision
// failures degrade to the unrevised candidate.
func (o *Orchestrator) ProduceReply(ctx context.Context, userID, message string, history History) (string, error) {
	ctx, span := tracer.Start(ctx, "conversation.produce_reply")
	defer span.End()
	span.SetAttributes(
		attribute.String("medcompanion.user_id", userID),
		attribute.Int("medcompanion.history_turns", len(history)),
	)

	if strings.TrimSpace(message) == "" {
		span.RecordError(ErrEmptyMessage)
		span.SetStatus(codes.Error, ErrEmptyMessage.Error())
		return "", ErrEmptyMessage
	}

	outcome := ReplyOutcome{UserID: userID}

	start := o.cfg.now()
	candidate, err := o.generator.Generate(ctx, llm.GenerationRequest{
		Op:           "reply",
		Instructions: o.cfg.persona,
		History:      history.Messages(),
		NewUserText:  message,
	})
	outcome.GenerationLatency = o.cfg.now().Sub(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		o.logger.Error("reply generation failed", "user_id", userID, "error", err)
		return "", fmt.Errorf("conversation: generate reply: %w", err)
	}

	start = o.cfg.now()
	evaluation := o.evaluator.Evaluate(ctx, message, candidate)
	outcome.EvaluationLatency = o.cfg.now().Sub(start)
	outcome.Verdict = evaluation.Verdict
	outcome.EvaluationErr = evaluation.Err
	outcome.NeedsRevision = NeedsRevision(evaluation.Verdict)

	reply := candidate
	if outcome.NeedsRevision {
		start = o.cfg.now()
		revision := o.revisor.Revise(ctx, message, candidate, evaluation.Verdict)
		outcome.RevisionLatency = o.cfg.now().Sub(start)
		outcome.RevisionErr = revision.Err
		reply = revision.Reply
		if strings.TrimSpace(reply) == "" {
			reply = candidate
		}
		outcome.Revised = revision.Err == nil && reply != candidate
	}

	span.SetAttributes(
		attribute.Bool("medcompanion.needs_revision", outcome.NeedsRevision),
		attribute.Bool("medcompanion.revised", outcome.Revised),
		attribute.Bool("medcompanion.evaluation_failed", outcome.EvaluationErr != nil),
	)
	o.logger.Info("reply produced",
		"user_id", userID,
		"needs_revision", outcome.NeedsRevision,
		"revised", outcome.Revised,
		"deficiencies", evaluation.Verdict.Deficiencies(),
		"generation_ms", outcome.GenerationLatency.Milliseconds(),
		"evaluation_ms", outcome.EvaluationLatency.Milliseconds(),
		"revision_ms", outcome.RevisionLatency.Milliseconds(),
	)

	if o.cfg.recorder != nil {
		o.cfg.recorder.RecordReply(ctx, outcome)
	}
	return reply, nil
}
