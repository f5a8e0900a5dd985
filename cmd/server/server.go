package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/scribe/server/internal/config"
	"codeberg.org/scribe/server/internal/documents"
	"codeberg.org/scribe/server/internal/logger"
	"codeberg.org/scribe/server/internal/stream"
)

const (
	// owner and id of the document seeded when running without a database
	demoUserID     = "dev-user"
	demoDocumentID = "demo-document"
)

// creates and configures a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	server := &Server{config: cfg}

	if cfg.DatabaseURL != "" {
		db, err := newDatabasePool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		server.db = db
		server.store = documents.NewRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, documents are kept in memory",
			"demo_document_id", demoDocumentID,
			"demo_user_id", demoUserID,
		)
		server.store = seededMemoryStore()
	}

	if cfg.RedisURL != "" {
		client, err := stream.NewRedisClient(cfg.RedisURL)
		if err != nil {
			server.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}

		server.redis = client
	}

	services, err := InitializeServices(cfg, server.store)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	server.services = services
	server.router = gin.Default()

	if err := RegisterRoutes(server.router, server); err != nil {
		server.Close()
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return server, nil
}

// releases database and redis connections
func (s *Server) Close() {
	if s.redis != nil {
		s.redis.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}

	if s.db != nil {
		s.db.Close()
	}
}

func newDatabasePool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// pgbouncer in transaction mode rejects prepared statements
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Ping(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database")

	return db, nil
}

func seededMemoryStore() *documents.MemoryStore {
	store := documents.NewMemoryStore()
	store.PutDocument(documents.Document{
		ID:     demoDocumentID,
		UserID: demoUserID,
		Title:  "데모 문서",
	})

	return store
}
