package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flaggedVerdict() Verdict {
	v := goodVerdict()
	v.SafetyConcern = true
	v.Comments.SafetyConcern = "Gives dosing advice."
	return v
}

func TestLLMRevisor_Revises(t *testing.T) {
	gen := &stubGenerator{response: "  Revised reply: \"Please check with your doctor before changing your dose.\"  "}
	revisor := NewLLMRevisor(gen, nil)

	result := revisor.Revise(context.Background(), "Can I double my dose?", "Sure, double it.", flaggedVerdict())
	require.NoError(t, result.Err)
	assert.Equal(t, "Please check with your doctor before changing your dose.", result.Reply)

	req := gen.last()
	assert.Equal(t, "revise", req.Op)
	assert.Contains(t, req.NewUserText, "Can I double my dose?")
	assert.Contains(t, req.NewUserText, "Sure, double it.")
	assert.Contains(t, req.NewUserText, "safety_concern")
	assert.Contains(t, req.NewUserText, "Gives dosing advice.")
	assert.NotContains(t, req.NewUserText, CriterionHelpful)
}

func TestLLMRevisor_ReturnsCandidateOnFailure(t *testing.T) {
	const candidate = "Sure, double it."

	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"generation error", &stubGenerator{err: errors.New("backend unavailable")}},
		{"blank output", &stubGenerator{response: "   "}},
		{"empty quotes", &stubGenerator{response: `""`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewLLMRevisor(tt.gen, nil).Revise(context.Background(), "msg", candidate, flaggedVerdict())
			assert.Error(t, result.Err)
			assert.Equal(t, candidate, result.Reply)
		})
	}
}

func TestLLMRevisor_NothingToFix(t *testing.T) {
	gen := &stubGenerator{response: "unused"}
	result := NewLLMRevisor(gen, nil).Revise(context.Background(), "msg", "Fine reply.", goodVerdict())
	assert.NoError(t, result.Err)
	assert.Equal(t, "Fine reply.", result.Reply)
	assert.Equal(t, 0, gen.calls())
}

func TestCleanRevision(t *testing.T) {
	assert.Equal(t, "Hi there.", cleanRevision("Hi there."))
	assert.Equal(t, "Hi there.", cleanRevision("REVISED RESPONSE: Hi there."))
	assert.Equal(t, "Hi there.", cleanRevision(`"Hi there."`))
	assert.Equal(t, "", cleanRevision("  "))
}
