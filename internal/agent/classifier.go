package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/scribe/server/internal/llm"
	"codeberg.org/scribe/server/internal/logger"
)

const (
	fallbackConfidence    = 50
	fallbackPrimaryIntent = "unclassified request"
)

// maps a user message to an IntentAnalysis
type IntentClassifier struct {
	gateway llm.Gateway
}

func NewIntentClassifier(gateway llm.Gateway) *IntentClassifier {
	return &IntentClassifier{gateway: gateway}
}

// never fails: gateway and parse errors produce the fallback analysis
func (c *IntentClassifier) Classify(ctx context.Context, message string, cc ConversationContext) IntentAnalysis {
	raw, err := c.gateway.Complete(ctx, buildClassifierPrompt(message, cc), llm.Options{
		System:      classifierSystemPrompt,
		Temperature: llm.Temperature(0),
		JSON:        true,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("intent classification failed, using fallback", "error", err)
		return fallbackIntent(message)
	}

	intent, err := parseIntent(raw)
	if err != nil {
		logger.FromContext(ctx).Warn("unparseable intent analysis, using fallback",
			"error", err,
			"raw", truncate(raw, 200),
		)

		return fallbackIntent(message)
	}

	return intent
}

// strict parse-then-validate of classifier output
func parseIntent(raw string) (IntentAnalysis, error) {
	var intent IntentAnalysis
	if err := decodeModelJSON(raw, &intent); err != nil {
		return IntentAnalysis{}, err
	}

	intent.PrimaryIntent = strings.TrimSpace(intent.PrimaryIntent)
	if intent.PrimaryIntent == "" {
		return IntentAnalysis{}, errors.New("missing primaryIntent")
	}

	if !intent.DocumentAction.Valid() {
		return IntentAnalysis{}, fmt.Errorf("unknown documentAction %q", intent.DocumentAction)
	}

	if intent.Confidence < 0 || intent.Confidence > 100 {
		return IntentAnalysis{}, fmt.Errorf("confidence %v out of range", intent.Confidence)
	}

	intent.SecondaryIntents = nonNil(intent.SecondaryIntents)
	intent.ExplicitNeeds = nonNil(intent.ExplicitNeeds)
	intent.ImplicitNeeds = nonNil(intent.ImplicitNeeds)

	return intent, nil
}

func fallbackIntent(message string) IntentAnalysis {
	return IntentAnalysis{
		PrimaryIntent:    fallbackPrimaryIntent,
		SecondaryIntents: []string{},
		ExplicitNeeds:    []string{message},
		ImplicitNeeds:    []string{},
		DocumentAction:   ActionUnclear,
		Confidence:       fallbackConfidence,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
