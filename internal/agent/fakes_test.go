package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"codeberg.org/scribe/server/internal/documents"
	"codeberg.org/scribe/server/internal/llm"
)

// implements llm.Gateway for testing
type mockGateway struct {
	mu           sync.Mutex
	completeFunc func(ctx context.Context, prompt string, opts llm.Options) (string, error)
	streamFunc   func(ctx context.Context, prompt string, opts llm.Options, onToken func(string)) (string, error)
	prompts      []string
}

func (m *mockGateway) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.completeFunc != nil {
		return m.completeFunc(ctx, prompt, opts)
	}

	return "", llm.ErrEmptyResponse
}

func (m *mockGateway) Stream(ctx context.Context, prompt string, opts llm.Options, onToken func(string)) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.streamFunc != nil {
		return m.streamFunc(ctx, prompt, opts, onToken)
	}

	return "", llm.ErrEmptyResponse
}

func (m *mockGateway) Model() string {
	return "mock-model"
}

func (m *mockGateway) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.prompts)
}

// returns a gateway that always answers with text
func staticGateway(text string) *mockGateway {
	return &mockGateway{
		completeFunc: func(context.Context, string, llm.Options) (string, error) {
			return text, nil
		},
	}
}

// streams text word by word
func streamingGateway(text string) *mockGateway {
	return &mockGateway{
		streamFunc: func(_ context.Context, _ string, _ llm.Options, onToken func(string)) (string, error) {
			for _, word := range strings.SplitAfter(text, " ") {
				if onToken != nil {
					onToken(word)
				}
			}

			return text, nil
		},
	}
}

func newTestWriter(store documents.Store) *documents.Persister {
	return documents.NewPersister(store, 0)
}

func newTestStore(docs ...documents.Document) *documents.MemoryStore {
	store := documents.NewMemoryStore()
	for _, doc := range docs {
		store.PutDocument(doc)
	}

	return store
}

// section generator that never waits
func newTestSectionGenerator(gw llm.Gateway, store DocumentReader, retry llm.RetryPolicy) *SectionGenerator {
	gen := NewSectionGenerator(gw, store, SectionConfig{PacingDelay: 0, Retry: retry})
	gen.sleep = func(context.Context, time.Duration) error { return nil }

	return gen
}
