package documents

import (
	"context"
	"sync"
	"time"
)

// in-memory Store for development without a database and for tests
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
	outlines  map[string]Outline
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]Document),
		outlines:  make(map[string]Outline),
		now:       time.Now,
	}
}

// inserts or replaces a document
func (s *MemoryStore) PutDocument(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	s.documents[doc.ID] = doc
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &doc, nil
}

func (s *MemoryStore) GetOutline(_ context.Context, documentID string) (*Outline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outline, ok := s.outlines[documentID]
	if !ok {
		return nil, ErrNotFound
	}

	return &outline, nil
}

func (s *MemoryStore) SaveOutline(ctx context.Context, documentID, markdown string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.outlines[documentID] = Outline{
		DocumentID: documentID,
		Content:    markdown,
		UpdatedAt:  s.now(),
	}

	return nil
}

func (s *MemoryStore) SaveContent(ctx context.Context, documentID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return ErrNotFound
	}

	doc.Content = content
	doc.UpdatedAt = s.now()
	s.documents[documentID] = doc

	return nil
}
