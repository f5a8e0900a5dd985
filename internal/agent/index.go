package agent

import (
	"context"

	"codeberg.org/scribe/server/internal/llm"
	"codeberg.org/scribe/server/internal/logger"
)

// writes the markdown outline of a document. the result is not persisted here
type IndexGenerator struct {
	gateway llm.Gateway
	store   DocumentReader
}

func NewIndexGenerator(gateway llm.Gateway, store DocumentReader) *IndexGenerator {
	return &IndexGenerator{gateway: gateway, store: store}
}

func (g *IndexGenerator) Generate(ctx context.Context, documentID, userRequest, userID string) ToolResult[IndexData] {
	doc, err := loadOwnedDocument(ctx, g.store, documentID, userID)
	if err != nil {
		return fail[IndexData](err.Error())
	}

	existing, err := loadOutline(ctx, g.store, documentID)
	if err != nil {
		return fail[IndexData](err.Error())
	}

	raw, err := g.gateway.Complete(ctx, buildIndexPrompt(doc.Title, doc.Content, existing, userRequest), llm.Options{
		System: indexSystemPrompt,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("outline generation failed", "error", err)
		return fail[IndexData]("failed to generate outline: " + err.Error())
	}

	outline, err := cleanOutline(raw)
	if err != nil {
		return fail[IndexData](err.Error())
	}

	return ok(IndexData{GeneratedIndex: outline})
}
