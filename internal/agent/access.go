package agent

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/scribe/server/internal/documents"
)

const (
	errMsgDocumentNotFound = "document not found"
	errMsgUnauthorized     = "unauthorized: document is not owned by this user"
)

var (
	errDocumentNotFound = errors.New(errMsgDocumentNotFound)
	errUnauthorized     = errors.New(errMsgUnauthorized)
)

// loads a document and checks that userID owns it
func loadOwnedDocument(ctx context.Context, store DocumentReader, documentID, userID string) (*documents.Document, error) {
	doc, err := store.GetDocument(ctx, documentID)
	if errors.Is(err, documents.ErrNotFound) {
		return nil, errDocumentNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	if doc == nil {
		return nil, errDocumentNotFound
	}

	if doc.UserID != userID {
		return nil, errUnauthorized
	}

	return doc, nil
}

// returns the outline text, or "" when the document has none
func loadOutline(ctx context.Context, store DocumentReader, documentID string) (string, error) {
	outline, err := store.GetOutline(ctx, documentID)
	if errors.Is(err, documents.ErrNotFound) || (err == nil && outline == nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to load outline: %w", err)
	}

	return outline.Content, nil
}
