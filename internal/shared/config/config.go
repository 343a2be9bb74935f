package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	DatabaseURL     string

	MaxUploadBytes           int64
	LegalConfidenceThreshold float64
	ChatContextMaxBytes      int

	GoogleProjectID       string
	GoogleCredentialsFile string

	StructuringEndpoint  string
	StructuringProcessor string
	CompletionEndpoint   string
	CompletionModel      string
	TranslationEndpoint  string
	SpeechEndpoint       string

	ExternalTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		log.Printf("GOOGLE_APPLICATION_CREDENTIALS is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,
		DatabaseURL:     dbURL,

		MaxUploadBytes:           getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		LegalConfidenceThreshold: getEnvFloat("LEGAL_CONFIDENCE_THRESHOLD", 0.6),
		ChatContextMaxBytes:      int(getEnvInt64("CHAT_CONTEXT_MAX_BYTES", 12<<10)),

		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		StructuringEndpoint:  getEnv("STRUCTURING_ENDPOINT", "https://documentai.googleapis.com"),
		StructuringProcessor: getEnv("STRUCTURING_PROCESSOR", ""),
		CompletionEndpoint:   getEnv("COMPLETION_ENDPOINT", "https://generativelanguage.googleapis.com"),
		CompletionModel:      getEnv("COMPLETION_MODEL", "gemini-1.5-flash"),
		TranslationEndpoint:  getEnv("TRANSLATION_ENDPOINT", "https://translation.googleapis.com"),
		SpeechEndpoint:       getEnv("SPEECH_ENDPOINT", "https://speech.googleapis.com"),

		ExternalTimeout: time.Duration(getEnvInt64("EXTERNAL_TIMEOUT_SECONDS", 60)) * time.Second,
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
