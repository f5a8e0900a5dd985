package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort                  = "8080"
	defaultAgentRateLimit        = "30-M"
	defaultSectionPacingDelay    = time.Second
	defaultSectionRetryAttempts  = 3
	defaultSectionRetryBaseDelay = 2 * time.Second
	defaultPersistTimeout        = 10 * time.Second
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	environment := getEnv("ENVIRONMENT", "development")

	pacing, err := durationEnv("SECTION_PACING_DELAY", defaultSectionPacingDelay)
	if err != nil {
		return nil, err
	}

	baseDelay, err := durationEnv("SECTION_RETRY_BASE_DELAY", defaultSectionRetryBaseDelay)
	if err != nil {
		return nil, err
	}

	persistTimeout, err := durationEnv("PERSIST_TIMEOUT", defaultPersistTimeout)
	if err != nil {
		return nil, err
	}

	attempts := defaultSectionRetryAttempts
	if raw := os.Getenv("SECTION_RETRY_ATTEMPTS"); raw != "" {
		attempts, err = strconv.Atoi(raw)
		if err != nil || attempts < 1 {
			return nil, fmt.Errorf("SECTION_RETRY_ATTEMPTS must be a positive integer, got %q", raw)
		}
	}

	return &Config{
		Environment:    environment,
		Port:           getEnv("PORT", defaultPort),
		JWTSecret:      jwtSecret,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AgentRateLimit: getEnv("AGENT_RATE_LIMIT", defaultAgentRateLimit),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Agent: AgentConfig{
			SectionPacingDelay:    pacing,
			SectionRetryAttempts:  attempts,
			SectionRetryBaseDelay: baseDelay,
			PersistTimeout:        persistTimeout,
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func splitList(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// accepts Go duration strings ("1500ms") or bare integers as milliseconds
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q: %w", key, raw, err)
	}

	return d, nil
}
