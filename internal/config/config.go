package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string

	// Text generation
	LLMProvider       string
	BedrockModelID    string
	GeminiAPIKey      string
	GeminiModelID     string
	LLMTemperature    float32
	LLMMaxTokens      int
	PersonaPromptFile string

	// Label OCR
	OCRProvider    string
	OCRModelID     string
	MaxUploadBytes int64

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	ExtractionCacheTTL time.Duration

	DatabaseURL       string
	ScanArchiveBucket string
}

// Load reads configuration from environment variables
func Load() *Config {
	llmProvider := strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock")))
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "json")),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		LLMProvider:       llmProvider,
		BedrockModelID:    getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:     getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMTemperature:    getEnvAsFloat32("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 512),
		PersonaPromptFile: getEnv("PERSONA_PROMPT_FILE", ""),

		OCRProvider:    strings.ToLower(strings.TrimSpace(getEnv("OCR_PROVIDER", llmProvider))),
		OCRModelID:     getEnv("OCR_MODEL_ID", ""),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		ExtractionCacheTTL: getEnvAsDuration("EXTRACTION_CACHE_TTL", 24*time.Hour),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ScanArchiveBucket: getEnv("SCAN_ARCHIVE_BUCKET", ""),
	}
}

// OCRModel returns the model used for label OCR, falling back to the
// generation model of the same provider.
func (c *Config) OCRModel() string {
	if strings.TrimSpace(c.OCRModelID) != "" {
		return c.OCRModelID
	}
	if c.OCRProvider == "gemini" {
		return c.GeminiModelID
	}
	return c.BedrockModelID
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
