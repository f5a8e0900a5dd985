package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"codeberg.org/scribe/server/api/rest/agent"
	"codeberg.org/scribe/server/api/rest/health"
	"codeberg.org/scribe/server/internal/errors"
	"codeberg.org/scribe/server/internal/stream"
)

const version = "1.0.0"

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) error {
	router.Use(CORSMiddleware(server.config.AllowedOrigins))
	router.NoRoute(notFound)
	router.GET("/health", health.Handler(version, server.healthChecks()...))

	rateLimit, err := RateLimitMiddleware(server.config.AgentRateLimit, server.redis)
	if err != nil {
		return err
	}

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)

		agent.RegisterRoutes(v1, server.services.Agent, server.eventMirror(), rateLimit)
	}

	return nil
}

func notFound(c *gin.Context) {
	errors.NotFound(c, "route "+c.Request.Method+" "+c.Request.URL.Path)
}

// mirrors every run's messages to a redis stream when redis is configured
func (s *Server) eventMirror() agent.MirrorFunc {
	if s.redis == nil {
		return nil
	}

	client := s.redis

	return func(requestID string) stream.Sink {
		return stream.NewRedisSink(client, requestID)
	}
}

func (s *Server) healthChecks() []health.Check {
	var checks []health.Check

	if s.db != nil {
		checks = append(checks, health.Check{Name: "postgres", Probe: s.db.Ping})
	}

	if s.redis != nil {
		checks = append(checks, health.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}})
	}

	return checks
}
