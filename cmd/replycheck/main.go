// Command replycheck runs one message (and optionally one label image)
// through the live pipelines and prints what each stage decided.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/medcompanion-ai/cmd/mainconfig"
	"github.com/wolfman30/medcompanion-ai/internal/app/bootstrap"
	"github.com/wolfman30/medcompanion-ai/internal/compliance"
	appconfig "github.com/wolfman30/medcompanion-ai/internal/config"
	"github.com/wolfman30/medcompanion-ai/internal/conversation"
	"github.com/wolfman30/medcompanion-ai/internal/extraction"
	"github.com/wolfman30/medcompanion-ai/internal/ocr"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

const replycheckUser = "replycheck"

type outcomeCapture struct {
	outcome conversation.ReplyOutcome
}

func (c *outcomeCapture) RecordReply(_ context.Context, outcome conversation.ReplyOutcome) {
	c.outcome = outcome
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	message := flag.String("message", "I keep forgetting to take my evening pills.", "user message to reply to")
	imagePath := flag.String("image", "", "optional medication label image to extract")
	showAudit := flag.Bool("audit", false, "record the run in the audit trail (DATABASE_URL) and print it afterwards")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	gens, err := bootstrap.BuildGenerators(ctx, cfg, awsCfg, logger)
	if err != nil {
		log.Fatalf("build generators: %v", err)
	}
	defer func() { _ = gens.Close() }()
	persona, err := conversation.LoadPersona(cfg.PersonaPromptFile)
	if err != nil {
		log.Fatalf("load persona: %v", err)
	}

	var audit *compliance.AuditService
	if *showAudit {
		db := bootstrap.OpenAuditDB(ctx, cfg, logger)
		if db == nil {
			log.Fatal("-audit needs a reachable DATABASE_URL")
		}
		defer func() { _ = db.Close() }()
		audit = compliance.NewAuditService(db)
	}

	capture := &outcomeCapture{}
	recorders := conversation.Recorders{capture}
	if audit != nil {
		recorders = append(recorders, conversation.NewAuditRecorder(audit, logger))
	}
	orchestrator := conversation.NewOrchestrator(
		gens.Reply,
		conversation.NewLLMEvaluator(gens.Reply, logger),
		conversation.NewLLMRevisor(gens.Reply, logger),
		logger,
		conversation.WithPersona(persona),
		conversation.WithRecorder(recorders),
	)

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Reply pipeline")
	fmt.Println(strings.Repeat("=", 60))

	history := conversation.History{
		{Role: conversation.RoleUser, Text: "Hi, I just started a new medication."},
		{Role: conversation.RoleAssistant, Text: "That is a big step, and I am glad you shared it. How are you feeling about it so far?"},
	}
	for _, turn := range history {
		fmt.Printf("%-9s %s\n", string(turn.Role)+":", turn.Text)
	}

	reply, err := orchestrator.ProduceReply(ctx, replycheckUser, *message, history)
	if err != nil {
		log.Fatalf("produce reply: %v", err)
	}
	outcome := capture.outcome
	fmt.Printf("%-9s %s\n", "user:", *message)
	fmt.Printf("reply:    %s\n", reply)
	fmt.Printf("revised:  %t (needed: %t)\n", outcome.Revised, outcome.NeedsRevision)
	if outcome.EvaluationErr != nil {
		fmt.Printf("evaluation failed open: %v\n", outcome.EvaluationErr)
	}
	for _, d := range outcome.Verdict.Deficiencies() {
		fmt.Printf("  - %s\n", d)
	}
	fmt.Printf("latency:  generate=%s evaluate=%s revise=%s\n",
		outcome.GenerationLatency.Round(time.Millisecond),
		outcome.EvaluationLatency.Round(time.Millisecond),
		outcome.RevisionLatency.Round(time.Millisecond),
	)

	if *imagePath != "" {
		runExtraction(ctx, cfg, gens, audit, logger, *imagePath)
	}

	if audit != nil {
		fmt.Println()
		if err := printAuditTrail(ctx, os.Stdout, audit, replycheckUser); err != nil {
			log.Fatalf("query audit trail: %v", err)
		}
	}
}

func runExtraction(ctx context.Context, cfg *appconfig.Config, gens bootstrap.Generators, audit *compliance.AuditService, logger *logging.Logger, imagePath string) {

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Label extraction")
	fmt.Println(strings.Repeat("=", 60))

	data, err := os.ReadFile(imagePath)
	if err != nil {
		log.Fatalf("read image: %v", err)
	}
	img, err := ocr.NewImage(data)
	if err != nil {
		log.Fatalf("decode image: %v", err)
	}
	var opts []extraction.ServiceOption
	if audit != nil {
		opts = append(opts, extraction.WithAuditor(audit))
	}
	svc := extraction.NewService(
		ocr.NewVisionRecognizer(gens.OCR, cfg.OCRProvider),
		extraction.NewLLMExtractor(gens.Reply, logger),
		logger,
		opts...,
	)
	out, err := svc.ExtractFromImage(ctx, img)
	if err != nil {
		log.Fatalf("extract: %v", err)
	}
	fmt.Printf("text:\n%s\n\n", out.ExtractedText)
	for _, field := range []struct{ name, value string }{
		{extraction.FieldMedicineName, out.MedicationInfo.MedicineName},
		{extraction.FieldDosage, out.MedicationInfo.Dosage},
		{extraction.FieldFrequency, out.MedicationInfo.Frequency},
		{extraction.FieldDuration, out.MedicationInfo.Duration},
		{extraction.FieldAdditionalNotes, out.MedicationInfo.AdditionalNotes},
	} {
		fmt.Printf("%-18s %s\n", field.name+":", field.value)
	}
	if out.MedicationInfo.IsErrorRecord() {
		fmt.Println("extraction fell back to the error record")
	}
}

// printAuditTrail writes the most recent quality-gate events for userID.
func printAuditTrail(ctx context.Context, w io.Writer, audit *compliance.AuditService, userID string) error {
	events, err := audit.QueryEvents(ctx, compliance.AuditFilter{UserID: userID, Limit: 10})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "Audit trail")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	printed := 0
	for _, e := range events {
		if !strings.HasPrefix(string(e.EventType), "quality.") {
			continue
		}
		fmt.Fprintf(w, "%s  %-28s %s\n", e.CreatedAt.UTC().Format(time.RFC3339), e.EventType, string(e.Details))
		printed++
	}
	if printed == 0 {
		fmt.Fprintln(w, "no quality events recorded")
	}
	return nil
}
