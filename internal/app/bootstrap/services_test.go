package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/medcompanion-ai/internal/config"
	"github.com/wolfman30/medcompanion-ai/internal/extraction"
	"github.com/wolfman30/medcompanion-ai/internal/llm"
	"github.com/wolfman30/medcompanion-ai/internal/observability/metrics"
	"github.com/wolfman30/medcompanion-ai/internal/ocr"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

type opGenerator struct {
	outputs map[string]string
	ops     []string
}

func (g *opGenerator) Generate(ctx context.Context, req llm.GenerationRequest) (string, error) {
	g.ops = append(g.ops, req.Op)
	return g.outputs[req.Op], nil
}

const passingVerdict = `{"emotional_tone":true,"helpful":true,"safety_concern":false,"conciseness_length":true,
"comments":{"emotional_tone":"warm","helpful":"on topic","safety_concern":"none","conciseness_length":"two sentences"}}`

func TestBuildServicesWiresPipelines(t *testing.T) {
	reply := &opGenerator{outputs: map[string]string{
		"reply":    "That sounds tiring. Would a short walk help?",
		"evaluate": passingVerdict,
		"extract":  `{"medicine_name":"Panadol","dosage":"500mg","frequency":"","duration":"","additional_notes":""}`,
	}}
	vision := &opGenerator{outputs: map[string]string{"ocr": "PANADOL 500MG"}}

	services, err := BuildServices(
		&appconfig.Config{OCRProvider: "gemini"},
		Generators{Reply: reply, OCR: vision},
		Resources{Metrics: metrics.NewQualityMetrics(prometheus.NewRegistry())},
		logging.New("error"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := services.Replies.ProduceReply(context.Background(), "u-1", "I feel tired", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "That sounds tiring. Would a short walk help?" {
		t.Fatalf("unexpected reply %q", got)
	}

	out, err := services.Extraction.ExtractFromImage(context.Background(), ocr.Image{Data: []byte("img"), Format: llm.ImageFormatPNG})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ExtractedText != "PANADOL 500MG" || out.MedicationInfo.MedicineName != "Panadol" {
		t.Fatalf("unexpected extraction %+v", out)
	}
	if out.MedicationInfo.Frequency != extraction.NotIdentified {
		t.Fatalf("expected blank frequency to become %q, got %q", extraction.NotIdentified, out.MedicationInfo.Frequency)
	}
	if len(vision.ops) != 1 || vision.ops[0] != "ocr" {
		t.Fatalf("expected one OCR call on the vision generator, got %v", vision.ops)
	}
}

func TestBuildServicesPersonaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.txt")
	if err := os.WriteFile(path, []byte("You are a calm companion."), 0o600); err != nil {
		t.Fatalf("write persona: %v", err)
	}
	reply := &opGenerator{outputs: map[string]string{}}

	if _, err := BuildServices(&appconfig.Config{PersonaPromptFile: path}, Generators{Reply: reply, OCR: reply}, Resources{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := &appconfig.Config{PersonaPromptFile: filepath.Join(t.TempDir(), "missing.txt")}
	if _, err := BuildServices(missing, Generators{Reply: reply, OCR: reply}, Resources{}, nil); err == nil {
		t.Fatalf("expected error for missing persona file")
	}
}

func TestBuildServicesRequiresGenerators(t *testing.T) {
	if _, err := BuildServices(&appconfig.Config{}, Generators{}, Resources{}, nil); err == nil {
		t.Fatalf("expected error without generators")
	}
	if _, err := BuildServices(nil, Generators{}, Resources{}, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
