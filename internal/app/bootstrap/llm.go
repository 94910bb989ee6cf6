package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/medcompanion-ai/internal/config"
	"github.com/wolfman30/medcompanion-ai/internal/llm"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// ocrMaxTokens leaves room for dense label text.
const ocrMaxTokens = 1024

// BuildLLMClient returns the backend client for provider.
func BuildLLMClient(ctx context.Context, provider string, cfg *appconfig.Config, awsCfg aws.Config) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderBedrock, "":
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg)), nil
	case ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("bootstrap: unsupported llm provider %q", provider)
	}
}

// ReplyModel returns the model id used for reply generation, evaluation,
// revision and field extraction.
func ReplyModel(cfg *appconfig.Config) (string, error) {
	switch cfg.LLMProvider {
	case ProviderGemini:
		return cfg.GeminiModelID, nil
	default:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return "", fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for provider %q", cfg.LLMProvider)
		}
		return cfg.BedrockModelID, nil
	}
}

// Generators holds the two text generators the service needs.
type Generators struct {
	Reply llm.TextGenerator
	OCR   llm.TextGenerator

	// Closer releases backend clients that hold connections; nil when none do.
	Closer io.Closer
}

// Close releases the backend clients. Safe on a zero Generators.
func (g Generators) Close() error {
	if g.Closer == nil {
		return nil
	}
	return g.Closer.Close()
}

type clientClosers []io.Closer

func (cs clientClosers) Close() error {
	var errs []error
	for _, c := range cs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// closerFor collects the clients that implement io.Closer, once each.
func closerFor(clients ...llm.Client) io.Closer {
	var out clientClosers
	seen := make(map[llm.Client]bool, len(clients))
	for _, client := range clients {
		if client == nil || seen[client] {
			continue
		}
		seen[client] = true
		if c, ok := client.(io.Closer); ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// BuildGenerators wires the reply and OCR generators. The OCR backend reuses
// the reply client when both use the same provider.
func BuildGenerators(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (Generators, error) {
	if cfg == nil {
		return Generators{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	replyModel, err := ReplyModel(cfg)
	if err != nil {
		return Generators{}, err
	}
	replyClient, err := BuildLLMClient(ctx, cfg.LLMProvider, cfg, awsCfg)
	if err != nil {
		return Generators{}, err
	}

	ocrClient := replyClient
	if cfg.OCRProvider != cfg.LLMProvider {
		ocrClient, err = BuildLLMClient(ctx, cfg.OCRProvider, cfg, awsCfg)
		if err != nil {
			if c := closerFor(replyClient); c != nil {
				_ = c.Close()
			}
			return Generators{}, err
		}
	}
	closer := closerFor(replyClient, ocrClient)
	ocrModel := cfg.OCRModel()
	if strings.TrimSpace(ocrModel) == "" {
		if closer != nil {
			_ = closer.Close()
		}
		return Generators{}, fmt.Errorf("bootstrap: no OCR model configured for provider %q", cfg.OCRProvider)
	}

	logger.Info("llm backends configured",
		"provider", cfg.LLMProvider,
		"model", replyModel,
		"ocr_provider", cfg.OCRProvider,
		"ocr_model", ocrModel,
	)

	return Generators{
		Reply: llm.NewGenerator(replyClient, llm.GeneratorConfig{
			Model:       replyModel,
			MaxTokens:   int32(cfg.LLMMaxTokens),
			Temperature: cfg.LLMTemperature,
		}),
		OCR: llm.NewGenerator(ocrClient, llm.GeneratorConfig{
			Model:       ocrModel,
			MaxTokens:   ocrMaxTokens,
			Temperature: 0,
		}),
		Closer: closer,
	}, nil
}
