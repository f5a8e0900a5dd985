package agent

import (
	"context"
	"strings"

	"codeberg.org/scribe/server/internal/llm"
	"codeberg.org/scribe/server/internal/logger"
)

// returned whenever a conversational answer cannot be produced
const FallbackApology = "죄송합니다. 지금은 응답을 생성할 수 없습니다. 잠시 후 다시 시도해 주세요."

// answers the user without touching the document
type DirectResponder struct {
	gateway llm.Gateway
}

func NewDirectResponder(gateway llm.Gateway) *DirectResponder {
	return &DirectResponder{gateway: gateway}
}

// never fails; onToken may be nil
func (r *DirectResponder) Respond(ctx context.Context, message string, cc ConversationContext, reasoning string, onToken func(string)) string {
	out, err := r.gateway.Stream(ctx, buildResponderPrompt(message, cc, reasoning), llm.Options{
		System: responderSystemPrompt,
	}, onToken)
	if err != nil {
		logger.FromContext(ctx).Warn("direct response failed", "error", err)
		return FallbackApology
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return FallbackApology
	}

	return out
}
