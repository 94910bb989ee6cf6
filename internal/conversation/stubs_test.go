package conversation

import (
	"context"
	"sync"

	"github.com/wolfman30/medcompanion-ai/internal/llm"
)

// stubGenerator returns canned output and records every request.
type stubGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	requests []llm.GenerationRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req llm.GenerationRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubGenerator) last() llm.GenerationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type stubEvaluator struct {
	result EvaluationResult
	calls  int
	gotMsg string
	gotRep string
}

func (s *stubEvaluator) Evaluate(ctx context.Context, userMessage, candidate string) EvaluationResult {
	s.calls++
	s.gotMsg, s.gotRep = userMessage, candidate
	return s.result
}

type stubRevisor struct {
	result     RevisionResult
	calls      int
	gotVerdict Verdict
}

func (s *stubRevisor) Revise(ctx context.Context, userMessage, candidate string, verdict Verdict) RevisionResult {
	s.calls++
	s.gotVerdict = verdict
	return s.result
}

type stubRecorder struct {
	outcomes []ReplyOutcome
}

func (s *stubRecorder) RecordReply(ctx context.Context, outcome ReplyOutcome) {
	s.outcomes = append(s.outcomes, outcome)
}

func goodVerdict() Verdict {
	return Verdict{EmotionalTone: true, Helpful: true, SafetyConcern: false, ConcisenessLength: true}
}
