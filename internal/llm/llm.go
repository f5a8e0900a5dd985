package llm

import "fmt"

// builds the gateway for one configured provider
func NewGateway(config GatewayConfig) (Gateway, error) {
	switch config.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicGateway(config), nil
	case ProviderOpenAI:
		return NewOpenAIGateway(config), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}

// analyzer and generator gateways, each behind its own circuit breaker
type Gateways struct {
	Analyzer  Gateway
	Generator Gateway
}

func NewGateways(config *Config) (*Gateways, error) {
	analyzer, err := NewGateway(config.Analyzer)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer gateway: %w", err)
	}

	generator, err := NewGateway(config.Generator)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator gateway: %w", err)
	}

	if config.Breaker.ConsecutiveFailures == 0 {
		return &Gateways{Analyzer: analyzer, Generator: generator}, nil
	}

	return &Gateways{
		Analyzer:  NewBreakerGateway("llm-analyzer", analyzer, config.Breaker),
		Generator: NewBreakerGateway("llm-generator", generator, config.Breaker),
	}, nil
}
