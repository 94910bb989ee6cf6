package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/medcompanion-ai/internal/llm"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

// RevisionResult always carries a sendable reply. Err is set when Reply is
// the unrevised candidate because revision failed.
type RevisionResult struct {
	Reply string
	Err   error
}

// Revisor rewrites a candidate reply to address the criteria a verdict flags.
type Revisor interface {
	Revise(ctx context.Context, userMessage, candidate string, verdict Verdict) RevisionResult
}

const revisorInstructions = `You revise replies written by a kind, empathetic mental health companion chatbot for young people on psychiatric medication.

Rewrite the candidate reply so that it fixes every issue listed by the reviewer while staying relevant to the user's message.

Rules:
- The revised reply must be 1 to 3 sentences.
- Keep a warm, supportive, non-judgmental tone.
- Do not give medical advice or diagnoses. If the user mentions serious symptoms, gently encourage them to talk to a healthcare provider, school counsellor, or someone they trust.
- Output ONLY the revised reply text. No preamble, labels, quotes, or commentary.`

// LLMRevisor rewrites replies through the text generator.
type LLMRevisor struct {
	generator llm.TextGenerator
	logger    *logging.Logger
}

func NewLLMRevisor(generator llm.TextGenerator, logger *logging.Logger) *LLMRevisor {
	if generator == nil {
		panic("conversation: revisor generator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMRevisor{generator: generator, logger: logger}
}

// Revise returns the candidate unchanged on any failure.
func (r *LLMRevisor) Revise(ctx context.Context, userMessage, candidate string, verdict Verdict) RevisionResult {
	issues := verdict.Deficiencies()
	if len(issues) == 0 {
		return RevisionResult{Reply: candidate}
	}

	prompt := fmt.Sprintf("User message:\n%s\n\nCandidate reply:\n%s\n\nReviewer issues:\n- %s\n",
		userMessage, candidate, strings.Join(issues, "\n- "))
	raw, err := r.generator.Generate(ctx, llm.GenerationRequest{
		Op:           "revise",
		Instructions: revisorInstructions,
		NewUserText:  prompt,
	})
	if err != nil {
		return r.keepCandidate(candidate, err)
	}

	revised := cleanRevision(raw)
	if revised == "" {
		return r.keepCandidate(candidate, errors.New("conversation: revision was empty"))
	}
	return RevisionResult{Reply: revised}
}

func (r *LLMRevisor) keepCandidate(candidate string, err error) RevisionResult {
	r.logger.Warn("revision failed; keeping candidate reply", "error", err)
	return RevisionResult{Reply: candidate, Err: err}
}

// cleanRevision strips wrappers models add despite instructions.
func cleanRevision(raw string) string {
	text := strings.TrimSpace(raw)
	for _, prefix := range []string{"Revised reply:", "Revised response:", "Revised:"} {
		if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			text = strings.TrimSpace(text[len(prefix):])
		}
	}
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}
