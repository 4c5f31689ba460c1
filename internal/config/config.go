package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration loaded from the environment.
type Config struct {
	Port        string
	CorsOrigins []string
	OutputDir   string

	AIProvider      string
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnalysisTimeout time.Duration

	StorageBackend    string
	StorageDir        string
	StorageQuotaBytes int
	MongoURI          string
	MongoDatabase     string
	DatabaseURL       string
	AWSRegion         string
	S3Bucket          string
	S3Prefix          string

	StorageImageWidth  int
	AnalysisImageWidth int

	SendGridAPIKey string
	ShareFromEmail string

	VoiceLang string

	// SessionIdleTimeout drops sessions with no socket attached after this
	// long without activity. Zero disables expiry.
	SessionIdleTimeout time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	geminiKey := envOr("GOOGLE_API_KEY", "")
	if geminiKey == "" {
		geminiKey = envOr("GEMINI_API_KEY", "")
	}

	return Config{
		Port:        envOr("PORT", "8080"),
		CorsOrigins: parseCSV(envOr("CORS_ORIGINS", "")),
		OutputDir:   envOr("OUTPUT_DIR", "output"),

		AIProvider:      strings.ToLower(envOr("AI_PROVIDER", "gemini")),
		GeminiAPIKey:    geminiKey,
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-3-flash-preview"),
		OpenAIAPIKey:    envOr("OPENAI_API_KEY", ""),
		OpenAIModel:     envOr("OPENAI_MODEL", "gpt-4o-mini"),
		AnalysisTimeout: envOrDuration("ANALYSIS_TIMEOUT", 2*time.Minute),

		StorageBackend:    strings.ToLower(envOr("STORAGE_BACKEND", "file")),
		StorageDir:        envOr("STORAGE_DIR", "data"),
		StorageQuotaBytes: envOrInt("STORAGE_QUOTA_BYTES", 5<<20),
		MongoURI:          envOr("MONGO_URI", "mongodb://localhost:27017/"),
		MongoDatabase:     envOr("MONGO_DATABASE", "bodycheck"),
		DatabaseURL:       envOr("DATABASE_URL", ""),
		AWSRegion:         envOr("AWS_REGION", "ap-northeast-2"),
		S3Bucket:          envOr("S3_BUCKET", ""),
		S3Prefix:          envOr("S3_PREFIX", "bodycheck/"),

		StorageImageWidth:  envOrInt("STORAGE_IMAGE_WIDTH", 300),
		AnalysisImageWidth: envOrInt("ANALYSIS_IMAGE_WIDTH", 800),

		SendGridAPIKey: envOr("SENDGRID_API_KEY", ""),
		ShareFromEmail: envOr("SHARE_FROM_EMAIL", "no-reply@bodycheck.local"),

		VoiceLang:          envOr("VOICE_LANG", "ko-KR"),
		SessionIdleTimeout: envOrDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}
}

// RequireProviderKey fails when the selected AI provider has no API key.
func (c Config) RequireProviderKey() error {
	switch c.AIProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY or GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIProvider)
	}
	return nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
