package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultAnalyzerAnthropicModel  = "claude-3-5-haiku-20241022"
	defaultGeneratorAnthropicModel = "claude-sonnet-4-20250514"
	defaultAnalyzerOpenAIModel     = "gpt-4o-mini"
	defaultGeneratorOpenAIModel    = "gpt-4o"
)

// loads LLM configuration from environment variables
func LoadConfig() (*Config, error) {
	provider := Provider(os.Getenv("LLM_PROVIDER"))
	if provider == "" {
		provider = ProviderAnthropic
	}

	var apiKey, baseURL, analyzerModel, generatorModel string

	switch provider {
	case ProviderAnthropic:
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
		}

		baseURL = os.Getenv("ANTHROPIC_BASE_URL")
		analyzerModel = getEnv("ANALYZER_MODEL", defaultAnalyzerAnthropicModel)
		generatorModel = getEnv("GENERATOR_MODEL", defaultGeneratorAnthropicModel)
	case ProviderOpenAI:
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}

		baseURL = os.Getenv("OPENAI_BASE_URL")
		analyzerModel = getEnv("ANALYZER_MODEL", defaultAnalyzerOpenAIModel)
		generatorModel = getEnv("GENERATOR_MODEL", defaultGeneratorOpenAIModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	rps := floatEnv("LLM_REQUESTS_PER_SECOND", 5)

	return &Config{
		Analyzer: GatewayConfig{
			Provider:          provider,
			APIKey:            apiKey,
			BaseURL:           baseURL,
			Model:             analyzerModel,
			MaxTokens:         intEnv("ANALYZER_MAX_TOKENS", 1024),
			Temperature:       float32(floatEnv("ANALYZER_TEMPERATURE", 0.2)),
			RequestsPerSecond: rps,
			Burst:             2,
		},
		Generator: GatewayConfig{
			Provider:          provider,
			APIKey:            apiKey,
			BaseURL:           baseURL,
			Model:             generatorModel,
			MaxTokens:         intEnv("GENERATOR_MAX_TOKENS", 4096),
			Temperature:       float32(floatEnv("GENERATOR_TEMPERATURE", 0.7)),
			RequestsPerSecond: rps,
			Burst:             2,
		},
		Breaker: BreakerSettings{
			ConsecutiveFailures: uint32(intEnv("LLM_BREAKER_FAILURES", 5)),
			OpenTimeout:         time.Duration(intEnv("LLM_BREAKER_TIMEOUT_SECONDS", 30)) * time.Second,
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func intEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil {
			return val
		}
	}

	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if val, err := strconv.ParseFloat(raw, 32); err == nil {
			return val
		}
	}

	return fallback
}
