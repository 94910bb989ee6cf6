package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/medcompanion-ai/internal/llm"
)

const (
	CriterionEmotionalTone     = "emotional_tone"
	CriterionHelpful           = "helpful"
	CriterionSafetyConcern     = "safety_concern"
	CriterionConcisenessLength = "conciseness_length"
)

// Criteria lists the rubric keys in the order they are reported.
var Criteria = []string{
	CriterionEmotionalTone,
	CriterionHelpful,
	CriterionSafetyConcern,
	CriterionConcisenessLength,
}

// VerdictComments carries one free-text comment per criterion.
type VerdictComments struct {
	EmotionalTone     string `json:"emotional_tone"`
	Helpful           string `json:"helpful"`
	SafetyConcern     string `json:"safety_concern"`
	ConcisenessLength string `json:"conciseness_length"`
}

// Verdict is the rubric evaluation of a candidate reply.
//
// SafetyConcern has inverted polarity: true means a concern was raised. For
// the other three criteria true is the good outcome.
type Verdict struct {
	EmotionalTone     bool            `json:"emotional_tone"`
	Helpful           bool            `json:"helpful"`
	SafetyConcern     bool            `json:"safety_concern"`
	ConcisenessLength bool            `json:"conciseness_length"`
	Comments          VerdictComments `json:"comments"`
}

// NeedsRevision is the revision trigger.
func NeedsRevision(v Verdict) bool {
	return len(v.FailedCriteria()) > 0
}

// FailedCriteria returns the criteria the verdict flags, in Criteria order.
func (v Verdict) FailedCriteria() []string {
	var out []string
	if !v.EmotionalTone {
		out = append(out, CriterionEmotionalTone)
	}
	if !v.Helpful {
		out = append(out, CriterionHelpful)
	}
	if v.SafetyConcern {
		out = append(out, CriterionSafetyConcern)
	}
	if !v.ConcisenessLength {
		out = append(out, CriterionConcisenessLength)
	}
	return out
}

var criterionProblems = map[string]string{
	CriterionEmotionalTone:     "not warm or empathetic enough",
	CriterionHelpful:           "not relevant or accurate",
	CriterionSafetyConcern:     "raises a safety concern",
	CriterionConcisenessLength: "not within 1 to 3 sentences",
}

// Comment returns the evaluator comment for criterion.
func (c VerdictComments) Comment(criterion string) string {
	switch criterion {
	case CriterionEmotionalTone:
		return c.EmotionalTone
	case CriterionHelpful:
		return c.Helpful
	case CriterionSafetyConcern:
		return c.SafetyConcern
	case CriterionConcisenessLength:
		return c.ConcisenessLength
	}
	return ""
}

// Deficiencies returns the criteria the verdict flags, each with its comment.
func (v Verdict) Deficiencies() []string {
	failed := v.FailedCriteria()
	out := make([]string, 0, len(failed))
	for _, criterion := range failed {
		line := fmt.Sprintf("%s: %s", criterion, criterionProblems[criterion])
		if c := strings.TrimSpace(v.Comments.Comment(criterion)); c != "" {
			line += " (" + c + ")"
		}
		out = append(out, line)
	}
	return out
}

// FailOpenVerdict is the "no issues" verdict used when evaluation cannot run.
func FailOpenVerdict() Verdict {
	const note = "Evaluation could not be performed."
	return Verdict{
		EmotionalTone:     true,
		Helpful:           true,
		SafetyConcern:     false,
		ConcisenessLength: true,
		Comments: VerdictComments{
			EmotionalTone:     note,
			Helpful:           note,
			SafetyConcern:     note,
			ConcisenessLength: note,
		},
	}
}

// verdictPayload uses pointers so an omitted key is distinguishable from false.
type verdictPayload struct {
	EmotionalTone     *bool           `json:"emotional_tone"`
	Helpful           *bool           `json:"helpful"`
	SafetyConcern     *bool           `json:"safety_concern"`
	ConcisenessLength *bool           `json:"conciseness_length"`
	Comments          *commentPayload `json:"comments"`
}

type commentPayload struct {
	EmotionalTone     *string `json:"emotional_tone"`
	Helpful           *string `json:"helpful"`
	SafetyConcern     *string `json:"safety_concern"`
	ConcisenessLength *string `json:"conciseness_length"`
}

func (p verdictPayload) missing() []string {
	var missing []string
	check := func(key string, present bool) {
		if !present {
			missing = append(missing, key)
		}
	}
	check(CriterionEmotionalTone, p.EmotionalTone != nil)
	check(CriterionHelpful, p.Helpful != nil)
	check(CriterionSafetyConcern, p.SafetyConcern != nil)
	check(CriterionConcisenessLength, p.ConcisenessLength != nil)
	if p.Comments == nil {
		return append(missing, "comments")
	}
	check("comments."+CriterionEmotionalTone, p.Comments.EmotionalTone != nil)
	check("comments."+CriterionHelpful, p.Comments.Helpful != nil)
	check("comments."+CriterionSafetyConcern, p.Comments.SafetyConcern != nil)
	check("comments."+CriterionConcisenessLength, p.Comments.ConcisenessLength != nil)
	return missing
}

// ParseVerdict decodes evaluator output. Any missing or unknown criterion or
// comment is a *llm.ParseError; a partial verdict is never returned.
func ParseVerdict(raw string) (Verdict, error) {
	var payload verdictPayload
	if err := llm.DecodeObject(raw, "verdict", &payload, true); err != nil {
		return Verdict{}, err
	}
	if missing := payload.missing(); len(missing) > 0 {
		return Verdict{}, &llm.ParseError{
			Kind: "verdict",
			Raw:  raw,
			Err:  fmt.Errorf("missing keys: %s", strings.Join(missing, ", ")),
		}
	}
	return Verdict{
		EmotionalTone:     *payload.EmotionalTone,
		Helpful:           *payload.Helpful,
		SafetyConcern:     *payload.SafetyConcern,
		ConcisenessLength: *payload.ConcisenessLength,
		Comments: VerdictComments{
			EmotionalTone:     strings.TrimSpace(*payload.Comments.EmotionalTone),
			Helpful:           strings.TrimSpace(*payload.Comments.Helpful),
			SafetyConcern:     strings.TrimSpace(*payload.Comments.SafetyConcern),
			ConcisenessLength: strings.TrimSpace(*payload.Comments.ConcisenessLength),
		},
	}, nil
}
