package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/medcompanion-ai/internal/llm"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

// Result always carries a well-formed record. Err is set when Info is the
// ErrorRecord.
type Result struct {
	Info MedicationInfo
	Err  error
}

// Extractor turns recognized label text into a MedicationInfo.
type Extractor interface {
	Extract(ctx context.Context, rawText string) Result
}

const extractorInstructions = `You are an expert assistant that extracts medication details from the text of a prescription or medication label.
Your task is to extract the medication name, dosage, frequency, duration, and additional notes.

Always respond with a single valid JSON object. Here are examples of the expected output format:

Example 1:
{"medicine_name": "Ezetimibe", "dosage": "900mg", "frequency": "One tablet every morning", "duration": "No set duration", "additional_notes": "May be taken with or without food. Stop medication only on doctor's advice."}

Example 2:
{"medicine_name": "Amoxicillin", "dosage": "500mg", "frequency": "Twice a day", "duration": "7 days", "additional_notes": "Take with food."}

Rules:
- Pay close attention to medication names, dosages, and frequencies.
- The JSON object must contain exactly these keys and no others: "medicine_name", "dosage", "frequency", "duration", "additional_notes".
- If there are no additional notes, set "additional_notes" to "Not applicable".
- If there is no set duration, set "duration" to "No set duration".
- Do not guess. If no relevant information can be found for any other key, set its value to "Not identified".`

// LLMExtractor extracts fields through the text generator.
type LLMExtractor struct {
	generator llm.TextGenerator
	logger    *logging.Logger
}

func NewLLMExtractor(generator llm.TextGenerator, logger *logging.Logger) *LLMExtractor {
	if generator == nil {
		panic("extraction: generator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMExtractor{generator: generator, logger: logger}
}

// Extract never fails: any backend or parse error yields ErrorRecord. Blank
// input yields EmptyRecord without a model call.
func (e *LLMExtractor) Extract(ctx context.Context, rawText string) Result {
	if strings.TrimSpace(rawText) == "" {
		return Result{Info: EmptyRecord()}
	}

	raw, err := e.generator.Generate(ctx, llm.GenerationRequest{
		Op:           "extract",
		Instructions: extractorInstructions,
		NewUserText:  rawText,
	})
	if err != nil {
		return e.fallback(err)
	}

	info, err := ParseMedicationInfo(raw)
	if err != nil {
		return e.fallback(err)
	}
	return Result{Info: info}
}

func (e *LLMExtractor) fallback(err error) Result {
	e.logger.Warn("medication extraction failed; returning error record", "error", err)
	return Result{Info: ErrorRecord(), Err: err}
}

type medicationPayload struct {
	MedicineName    *string `json:"medicine_name"`
	Dosage          *string `json:"dosage"`
	Frequency       *string `json:"frequency"`
	Duration        *string `json:"duration"`
	AdditionalNotes *string `json:"additional_notes"`
}

// ParseMedicationInfo decodes model output that must hold exactly the five
// keys. Unknown or missing keys are a *llm.ParseError. Blank values are
// replaced by the field's sentinel.
func ParseMedicationInfo(raw string) (MedicationInfo, error) {
	var payload medicationPayload
	if err := llm.DecodeObject(raw, "medication", &payload, true); err != nil {
		return MedicationInfo{}, err
	}

	var info MedicationInfo
	fields := []struct {
		key   string
		value *string
		dst   *string
	}{
		{FieldMedicineName, payload.MedicineName, &info.MedicineName},
		{FieldDosage, payload.Dosage, &info.Dosage},
		{FieldFrequency, payload.Frequency, &info.Frequency},
		{FieldDuration, payload.Duration, &info.Duration},
		{FieldAdditionalNotes, payload.AdditionalNotes, &info.AdditionalNotes},
	}

	var missing []string
	for _, f := range fields {
		if f.value == nil {
			missing = append(missing, f.key)
			continue
		}
		value := strings.TrimSpace(*f.value)
		if value == "" {
			value = sentinelFor(f.key)
		}
		*f.dst = value
	}
	if len(missing) > 0 {
		return MedicationInfo{}, &llm.ParseError{
			Kind: "medication",
			Raw:  raw,
			Err:  fmt.Errorf("missing keys: %s", strings.Join(missing, ", ")),
		}
	}
	return info, nil
}
