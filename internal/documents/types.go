package documents

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("document not found")

type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// markdown outline ("index") of a document
type Outline struct {
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// document persistence used by the agent
type Store interface {
	GetDocument(ctx context.Context, id string) (*Document, error)
	GetOutline(ctx context.Context, documentID string) (*Outline, error)
	SaveOutline(ctx context.Context, documentID, markdown string) error
	SaveContent(ctx context.Context, documentID, content string) error
}

// postgres-backed Store
type Repository struct {
	db *pgxpool.Pool
}

type PersistKind string

const (
	PersistOutline PersistKind = "outline"
	PersistContent PersistKind = "content"
)

// outcome of one asynchronous write
type PersistResult struct {
	Kind       PersistKind
	DocumentID string
	Err        error
	Duration   time.Duration
}
