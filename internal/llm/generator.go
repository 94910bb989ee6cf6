package llm

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GenerationRequest is one generation call: opaque instructions, prior turns
// in chronological order, and the new user turn.
type GenerationRequest struct {
	// Op labels the call for errors and traces ("reply", "evaluate", ...).
	Op           string
	Instructions string
	History      []Message
	NewUserText  string
	Images       []Image
}

// TextGenerator produces a single reply for a GenerationRequest.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// GeneratorConfig fixes the model parameters shared by every call.
type GeneratorConfig struct {
	Model       string
	MaxTokens   int32
	Temperature float32
}

// Generator adapts a Client into a TextGenerator. It holds no mutable state
// and may be shared across requests.
type Generator struct {
	client      Client
	model       string
	maxTokens   int32
	temperature float32
	tracer      trace.Tracer
}

func NewGenerator(client Client, cfg GeneratorConfig) *Generator {
	if client == nil {
		panic("llm: generator client cannot be nil")
	}
	return &Generator{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		tracer:      otel.Tracer("medcompanion.internal.llm"),
	}
}

// Generate makes exactly one backend call. Any backend failure or blank
// output is returned as a *GenerationError.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	ctx, span := g.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.op", req.Op),
		attribute.Int("llm.history_messages", len(req.History)),
	))
	defer span.End()

	resp, err := g.client.Complete(ctx, Request{
		Model:       g.model,
		System:      []string{req.Instructions},
		Messages:    BuildMessages(req),
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		span.RecordError(err)
		return "", &GenerationError{Op: req.Op, Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		span.RecordError(ErrEmptyOutput)
		return "", &GenerationError{Op: req.Op, Err: ErrEmptyOutput}
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", int(resp.Usage.InputTokens)),
		attribute.Int("llm.output_tokens", int(resp.Usage.OutputTokens)),
	)
	return text, nil
}

// BuildMessages appends the new user turn to a copy of the history.
func BuildMessages(req GenerationRequest) []Message {
	messages := make([]Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	return append(messages, Message{
		Role:    RoleUser,
		Content: req.NewUserText,
		Images:  req.Images,
	})
}
