package main

import (
	"fmt"

	"codeberg.org/scribe/server/internal/agent"
	"codeberg.org/scribe/server/internal/config"
	"codeberg.org/scribe/server/internal/documents"
	"codeberg.org/scribe/server/internal/llm"
	"codeberg.org/scribe/server/internal/logger"
)

// creates the LLM gateways, the background persister and the agent
func InitializeServices(cfg *config.Config, store documents.Store) (*Services, error) {
	llmConfig, err := llm.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load LLM config: %w", err)
	}

	gateways, err := llm.NewGateways(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM gateways: %w", err)
	}

	persister := documents.NewPersister(store, cfg.Agent.PersistTimeout)
	persister.OnResult = func(res documents.PersistResult) {
		if res.Err != nil {
			logger.ErrorErr(res.Err, "document write failed",
				"kind", string(res.Kind),
				"document_id", res.DocumentID,
			)
			return
		}

		logger.Debug("document write finished",
			"kind", string(res.Kind),
			"document_id", res.DocumentID,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}

	agentClient := agent.New(agent.Dependencies{
		Gateways: *gateways,
		Reader:   store,
		Writer:   persister,
		Sections: sectionConfig(cfg.Agent),
	})

	logger.Info("agent initialized",
		"analyzer_model", gateways.Analyzer.Model(),
		"generator_model", gateways.Generator.Model(),
	)

	return &Services{
		Agent:     agentClient,
		Gateways:  gateways,
		Persister: persister,
	}, nil
}

func sectionConfig(cfg config.AgentConfig) agent.SectionConfig {
	sections := agent.DefaultSectionConfig()
	sections.PacingDelay = cfg.SectionPacingDelay
	sections.Retry.MaxAttempts = cfg.SectionRetryAttempts
	sections.Retry.BaseDelay = cfg.SectionRetryBaseDelay

	return sections
}
