package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	classifierSystemPrompt = "You classify requests sent to a document-writing assistant. Respond with a single JSON object and nothing else."
	plannerSystemPrompt    = "You plan which tools a document-writing assistant runs. Respond with a single JSON object and nothing else."
	indexSystemPrompt      = "You write document outlines in markdown. Respond with the outline only."
	sectionSystemPrompt    = "You write one section of a markdown document. Respond with the section only, starting with its heading."
	responderSystemPrompt  = "You are a writing assistant helping the user with their document. Answer in the user's language."

	promptRule = "───────────────────────────────────────────\n"

	// size caps for document text embedded in prompts
	maxPromptContent = 12000
	maxHistoryItem   = 2000
)

func writeBlock(b *strings.Builder, title, body string) {
	b.WriteString(promptRule)
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(promptRule)
	b.WriteString(body)
	b.WriteString("\n\n")
}

func describeContext(cc ConversationContext) string {
	var b strings.Builder

	if cc.DocumentID != "" {
		fmt.Fprintf(&b, "Target document id: %s\n", cc.DocumentID)
	} else {
		b.WriteString("No target document.\n")
	}

	if st := cc.CurrentDocumentState; st != nil {
		fmt.Fprintf(&b, "Title: %s\nHas content: %t\nHas outline: %t\n", st.Title, st.HasContent, st.HasIndex)

		if st.LastModified != nil {
			fmt.Fprintf(&b, "Last modified: %s\n", st.LastModified.Format("2006-01-02 15:04"))
		}
	}

	for _, msg := range tail(cc.ConversationHistory, 6) {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Role, truncate(msg.Content, maxHistoryItem))
	}

	return strings.TrimSpace(b.String())
}

func buildClassifierPrompt(message string, cc ConversationContext) string {
	var b strings.Builder

	writeBlock(&b, "CONTEXT", describeContext(cc))
	writeBlock(&b, "USER MESSAGE", message)
	writeBlock(&b, "OUTPUT FORMAT", `{
  "primaryIntent": "short description of what the user wants",
  "secondaryIntents": ["..."],
  "explicitNeeds": ["needs stated by the user"],
  "implicitNeeds": ["needs implied by the request"],
  "documentAction": "create_new | improve_existing | general_guidance | unclear",
  "confidence": 0-100
}`)

	return b.String()
}

func buildPlannerPrompt(intent IntentAnalysis, cc ConversationContext) string {
	var b strings.Builder

	intentJSON, _ := json.MarshalIndent(intent, "", "  ") //nolint:errcheck
	contextJSON, _ := json.MarshalIndent(cc, "", "  ")    //nolint:errcheck

	writeBlock(&b, "INTENT", string(intentJSON))
	writeBlock(&b, "CONTEXT", string(contextJSON))
	writeBlock(&b, "TOOLS", strings.Join([]string{
		"generateIndex: writes or rewrites the document outline (markdown headings)",
		"generateDocument: writes the body section by section from the saved outline",
		"directResponse: answers the user conversationally without changing the document",
	}, "\n"))
	writeBlock(&b, "RULES", strings.Join([]string{
		"- Use generateIndex and generateDocument only when a target document id is present.",
		"- When documentAction is create_new or the document has no outline, generateIndex must have the lowest order among generateIndex/generateDocument.",
		"- Orders are positive integers; tools run in ascending order.",
		"- Use directResponse for questions and guidance.",
	}, "\n"))
	writeBlock(&b, "OUTPUT FORMAT", `{
  "strategy": "...",
  "toolsRequired": [
    {"tool": "generateIndex | generateDocument | directResponse", "parameters": {}, "reasoning": "...", "order": 1}
  ],
  "reasoning": "...",
  "expectedOutcome": "..."
}`)

	return b.String()
}

func buildIndexPrompt(title, content, existingOutline, userRequest string) string {
	var b strings.Builder

	writeBlock(&b, "DOCUMENT TITLE", title)

	if content != "" {
		writeBlock(&b, "CURRENT CONTENT", truncate(content, maxPromptContent))
	}

	if existingOutline != "" {
		writeBlock(&b, "EXISTING OUTLINE", existingOutline)
	}

	writeBlock(&b, "REQUEST", userRequest)
	writeBlock(&b, "INSTRUCTIONS", strings.Join([]string{
		"Write a markdown outline for the document.",
		"Use '# ' for the document title and '## ' for each top-level section.",
		"Sub-points may use '### '.",
		"Do not write anything before the first heading.",
	}, "\n"))

	return b.String()
}

type sectionPromptInput struct {
	Title        string
	Accumulated  string
	Outline      string
	Heading      string
	UserRequest  string
	ExtraContext string
}

func buildSectionPrompt(in sectionPromptInput) string {
	var b strings.Builder

	writeBlock(&b, "DOCUMENT TITLE", in.Title)
	writeBlock(&b, "OUTLINE", in.Outline)

	if in.Accumulated != "" {
		// keep the tail of long documents
		acc := []rune(in.Accumulated)
		if len(acc) > maxPromptContent {
			acc = acc[len(acc)-maxPromptContent:]
		}

		writeBlock(&b, "DOCUMENT SO FAR", string(acc))
	}

	if in.UserRequest != "" {
		writeBlock(&b, "REQUEST", in.UserRequest)
	}

	if in.ExtraContext != "" {
		writeBlock(&b, "ADDITIONAL CONTEXT", in.ExtraContext)
	}

	writeBlock(&b, "SECTION TO WRITE", in.Heading)
	b.WriteString("Write only this section. Start with the heading line exactly as given and continue from the document so far without repeating it.\n")

	return b.String()
}

func buildResponderPrompt(message string, cc ConversationContext, reasoning string) string {
	var b strings.Builder

	if st := cc.CurrentDocumentState; st != nil && st.Title != "" {
		writeBlock(&b, "DOCUMENT", st.Title)
	}

	if recent := tail(cc.ConversationHistory, 2); len(recent) > 0 {
		var h strings.Builder
		for _, msg := range recent {
			fmt.Fprintf(&h, "[%s] %s\n", msg.Role, truncate(msg.Content, maxHistoryItem))
		}

		writeBlock(&b, "RECENT CONVERSATION", strings.TrimSpace(h.String()))
	}

	if reasoning != "" {
		writeBlock(&b, "WHY YOU ARE ANSWERING", reasoning)
	}

	writeBlock(&b, "USER MESSAGE", message)

	return b.String()
}
