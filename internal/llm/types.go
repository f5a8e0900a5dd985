package llm

import "context"

// completion capability shared by every stage of the agent pipeline
type Gateway interface {
	// single-shot completion
	Complete(ctx context.Context, prompt string, opts Options) (string, error)

	// token stream; onToken is called for every text delta in arrival order and
	// the concatenated text is returned once the stream ends
	Stream(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error)

	Model() string
}

// represents different LLM providers
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// per-call generation options
type Options struct {
	System      string
	MaxTokens   int      // 0 uses the gateway default
	Temperature *float32 // nil uses the gateway default
	JSON        bool     // ask the provider for a JSON object when supported
}

// returns a pointer for Options.Temperature
func Temperature(t float32) *float32 {
	return &t
}

// holds configuration for one gateway
type GatewayConfig struct {
	Provider    Provider
	APIKey      string
	BaseURL     string // optional, for OpenAI-compatible hosts or test servers
	Model       string
	MaxTokens   int
	Temperature float32

	// provider-side pacing; 0 disables the limiter
	RequestsPerSecond float64
	Burst             int
}

// holds configuration for both gateways used by the agent
type Config struct {
	Analyzer  GatewayConfig // intent classification and planning
	Generator GatewayConfig // outline, section and conversational generation
	Breaker   BreakerSettings
}
