package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/scribe/server/internal/agent"
	"codeberg.org/scribe/server/internal/config"
	"codeberg.org/scribe/server/internal/documents"
	"codeberg.org/scribe/server/internal/llm"
)

// holds all dependencies and state for the API server
type Server struct {
	config   *config.Config
	db       *pgxpool.Pool // nil when documents live in memory
	redis    *redis.Client // nil when REDIS_URL is unset
	store    documents.Store
	services *Services
	router   *gin.Engine
}

// holds the agent and the clients it was built from
type Services struct {
	Agent     *agent.Agent
	Gateways  *llm.Gateways
	Persister *documents.Persister
}
