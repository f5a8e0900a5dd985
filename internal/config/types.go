package config

import "time"

type Config struct {
	Environment string
	Port        string
	JWTSecret   string

	// optional backends; empty means in-memory / disabled
	DatabaseURL string
	RedisURL    string

	// ulule formatted rate for the agent endpoints, e.g. "30-M"
	AgentRateLimit string

	// browser origins allowed by CORS; "*" allows any
	AllowedOrigins []string

	Agent AgentConfig
}

// tuning knobs for the document generation pipeline
type AgentConfig struct {
	SectionPacingDelay    time.Duration
	SectionRetryAttempts  int
	SectionRetryBaseDelay time.Duration
	PersistTimeout        time.Duration
}
