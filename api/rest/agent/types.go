package agent

import (
	agentcore "codeberg.org/scribe/server/internal/agent"
	"codeberg.org/scribe/server/internal/stream"
)

const (
	maxHistoryMessages = 50
	channelBuffer      = 16
)

// request body for both agent endpoints. the user id always comes from the
// token, never from the body
type ChatRequest struct {
	Message string      `json:"message" binding:"required,max=8000"`
	Context ChatContext `json:"context"`
}

type ChatContext struct {
	DocumentID           string                   `json:"documentId,omitempty" binding:"omitempty,max=128"`
	ConversationHistory  []agentcore.Message      `json:"conversationHistory,omitempty" binding:"max=200"`
	CurrentDocumentState *agentcore.DocumentState `json:"currentDocumentState,omitempty"`
}

// non-streaming response: the terminal result plus every message the run emitted
type ProcessResponse struct {
	RequestID string           `json:"requestId"`
	Result    agentcore.Result `json:"result"`
	Messages  []stream.Message `json:"messages"`
}

// payload of the final "result" SSE event
type ResultEvent struct {
	RequestID string           `json:"requestId"`
	Result    agentcore.Result `json:"result"`
}
