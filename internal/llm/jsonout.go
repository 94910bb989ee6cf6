package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// DecodeObject pulls the first JSON object out of model output and decodes it
// into dst. Code fences and surrounding prose are tolerated. When strict is
// set, keys not present in dst are rejected.
func DecodeObject(raw, kind string, dst any, strict bool) error {
	text := extractJSONObject(stripCodeFence(raw))
	if text == "" {
		return &ParseError{Kind: kind, Raw: raw, Err: errors.New("no JSON object found")}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return &ParseError{Kind: kind, Raw: raw, Err: err}
	}
	return nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
