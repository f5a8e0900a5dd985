package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document

	err := r.db.QueryRow(ctx, queryGetDocument, id).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Content,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// inserts an empty document owned by userID
func (r *Repository) CreateDocument(ctx context.Context, id, userID, title string) (*Document, error) {
	var doc Document

	err := r.db.QueryRow(ctx, queryCreateDocument, id, userID, title).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Content,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return &doc, nil
}

func (r *Repository) GetOutline(ctx context.Context, documentID string) (*Outline, error) {
	var outline Outline

	err := r.db.QueryRow(ctx, queryGetOutline, documentID).Scan(
		&outline.DocumentID,
		&outline.Content,
		&outline.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get outline: %w", err)
	}

	return &outline, nil
}

func (r *Repository) SaveOutline(ctx context.Context, documentID, markdown string) error {
	if _, err := r.db.Exec(ctx, queryUpsertOutline, documentID, markdown); err != nil {
		return fmt.Errorf("failed to save outline: %w", err)
	}

	return nil
}

func (r *Repository) SaveContent(ctx context.Context, documentID, content string) error {
	tag, err := r.db.Exec(ctx, queryUpdateContent, documentID, content)
	if err != nil {
		return fmt.Errorf("failed to save content: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
