package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/medcompanion-ai/internal/llm"
)

// Recognizer extracts the text printed on an image. An image with no
// legible text yields "" and no error.
type Recognizer interface {
	RecognizeText(ctx context.Context, img Image) (string, error)
}

// RecognitionError reports that the OCR backend failed.
type RecognitionError struct {
	Backend string
	Err     error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("ocr: %s recognition failed: %v", e.Backend, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// IsRecognitionError reports whether err wraps a RecognitionError.
func IsRecognitionError(err error) bool {
	var recErr *RecognitionError
	return errors.As(err, &recErr)
}

const noTextMarker = "NO_TEXT"

const transcribeInstructions = `You are an OCR engine. Transcribe all printed text visible in the image exactly as written, preserving line breaks.
Do not summarise, translate, correct, or explain anything.
If the image contains no legible text, output exactly: ` + noTextMarker

// VisionRecognizer performs OCR with a multimodal model.
type VisionRecognizer struct {
	generator llm.TextGenerator
	backend   string
}

// NewVisionRecognizer wraps a generator configured with a vision-capable
// model. backend names it in errors ("bedrock", "gemini").
func NewVisionRecognizer(generator llm.TextGenerator, backend string) *VisionRecognizer {
	if generator == nil {
		panic("ocr: generator cannot be nil")
	}
	if strings.TrimSpace(backend) == "" {
		backend = "vision"
	}
	return &VisionRecognizer{generator: generator, backend: backend}
}

func (r *VisionRecognizer) RecognizeText(ctx context.Context, img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", &RecognitionError{Backend: r.backend, Err: ErrEmptyImage}
	}
	text, err := r.generator.Generate(ctx, llm.GenerationRequest{
		Op:           "ocr",
		Instructions: transcribeInstructions,
		NewUserText:  "Transcribe the text in this image.",
		Images:       []llm.Image{{Format: img.Format, Data: img.Data}},
	})
	if err != nil {
		return "", &RecognitionError{Backend: r.backend, Err: err}
	}
	return normalizeText(text), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if strings.Trim(text, "`\"' .") == noTextMarker {
		return ""
	}
	return text
}
