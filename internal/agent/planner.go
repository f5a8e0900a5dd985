package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"codeberg.org/scribe/server/internal/llm"
	"codeberg.org/scribe/server/internal/logger"
)

const fallbackPlanReasoning = "fallback plan: the planner output could not be used, answering directly"

// turns an intent into an ordered list of tool invocations
type ActionPlanner struct {
	gateway llm.Gateway
}

func NewActionPlanner(gateway llm.Gateway) *ActionPlanner {
	return &ActionPlanner{gateway: gateway}
}

// never fails: gateway and parse errors produce the fallback plan
func (p *ActionPlanner) Plan(ctx context.Context, intent IntentAnalysis, cc ConversationContext) ActionPlan {
	raw, err := p.gateway.Complete(ctx, buildPlannerPrompt(intent, cc), llm.Options{
		System:      plannerSystemPrompt,
		Temperature: llm.Temperature(0),
		JSON:        true,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("action planning failed, using fallback", "error", err)
		return fallbackPlan()
	}

	plan, err := parsePlan(raw)
	if err != nil {
		logger.FromContext(ctx).Warn("unparseable action plan, using fallback",
			"error", err,
			"raw", truncate(raw, 200),
		)

		return fallbackPlan()
	}

	return plan
}

// strict parse-then-validate of planner output
func parsePlan(raw string) (ActionPlan, error) {
	var plan ActionPlan
	if err := decodeModelJSON(raw, &plan); err != nil {
		return ActionPlan{}, err
	}

	if len(plan.ToolsRequired) == 0 {
		return ActionPlan{}, errors.New("plan has no tools")
	}

	for i, action := range plan.ToolsRequired {
		if !action.Tool.Valid() {
			return ActionPlan{}, fmt.Errorf("tool %d: unknown tool %q", i, action.Tool)
		}

		if action.Order < 1 {
			return ActionPlan{}, fmt.Errorf("tool %d: order must be positive, got %d", i, action.Order)
		}
	}

	return plan, nil
}

func fallbackPlan() ActionPlan {
	return ActionPlan{
		Strategy: "direct response",
		ToolsRequired: []ToolAction{
			{
				Tool:      ToolDirectResponse,
				Reasoning: fallbackPlanReasoning,
				Order:     1,
			},
		},
		Reasoning:       fallbackPlanReasoning,
		ExpectedOutcome: "the user receives a conversational answer",
	}
}

// copy of the plan's tools in execution order; equal orders keep plan order
func orderedTools(plan ActionPlan) []ToolAction {
	tools := make([]ToolAction, len(plan.ToolsRequired))
	copy(tools, plan.ToolsRequired)

	sort.SliceStable(tools, func(i, j int) bool {
		return tools[i].Order < tools[j].Order
	})

	return tools
}
