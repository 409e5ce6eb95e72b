package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full runtime configuration, loaded from environment
// variables with .env support for local development.
type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	JWT        JWTConfig
	Education  EducationConfig
	Generation GenerationConfig
	Kafka      KafkaConfig
}

// JWTConfig carries the settings for verifying platform-issued tokens.
type JWTConfig struct {
	Secret string
	Issuer string
}

// EducationConfig points at the education content service.
type EducationConfig struct {
	BaseURL string
	Timeout time.Duration
}

// GenerationConfig configures the LLM question generator. An empty
// APIKey switches the service to the static generator.
type GenerationConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	QuestionCount int
	Timeout       time.Duration
}

// KafkaConfig configures lifecycle event publishing. Empty broker list
// disables publishing entirely.
type KafkaConfig struct {
	Brokers []string
}

func LoadConfig() (*Config, error) {
	// .env is optional, real deployments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getEnv("JWT_ISSUER", "compedu"),
		},
		Education: EducationConfig{
			BaseURL: os.Getenv("EDUCATION_SERVICE_URL"),
			Timeout: getDuration("EDUCATION_SERVICE_TIMEOUT", 5*time.Second),
		},
		Generation: GenerationConfig{
			BaseURL:       os.Getenv("OPENAI_BASE_URL"),
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			Model:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			QuestionCount: getInt("GENERATION_QUESTION_COUNT", 10),
			Timeout:       getDuration("GENERATION_TIMEOUT", 60*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Education.BaseURL == "" {
		return nil, fmt.Errorf("EDUCATION_SERVICE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
