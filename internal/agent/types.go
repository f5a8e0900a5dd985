package agent

import (
	"context"
	"time"

	"codeberg.org/scribe/server/internal/documents"
)

// represents a single conversation turn
type Message struct {
	Role      string    `json:"role"`    // "user" or "assistant"
	Content   string    `json:"content"` // message content
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// snapshot of the target document as the caller last saw it
type DocumentState struct {
	Title        string     `json:"title"`
	HasContent   bool       `json:"hasContent"`
	HasIndex     bool       `json:"hasIndex"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// everything the pipeline knows about the caller for one request
type ConversationContext struct {
	UserID               string         `json:"userId"`
	DocumentID           string         `json:"documentId,omitempty"` // empty when no document is targeted
	ConversationHistory  []Message      `json:"conversationHistory,omitempty"`
	CurrentDocumentState *DocumentState `json:"currentDocumentState,omitempty"`
}

type DocumentAction string

const (
	ActionCreateNew       DocumentAction = "create_new"
	ActionImproveExisting DocumentAction = "improve_existing"
	ActionGeneralGuidance DocumentAction = "general_guidance"
	ActionUnclear         DocumentAction = "unclear"
)

func (a DocumentAction) Valid() bool {
	switch a {
	case ActionCreateNew, ActionImproveExisting, ActionGeneralGuidance, ActionUnclear:
		return true
	}

	return false
}

type IntentAnalysis struct {
	PrimaryIntent    string         `json:"primaryIntent"`
	SecondaryIntents []string       `json:"secondaryIntents"`
	ExplicitNeeds    []string       `json:"explicitNeeds"`
	ImplicitNeeds    []string       `json:"implicitNeeds"`
	DocumentAction   DocumentAction `json:"documentAction"`
	Confidence       float64        `json:"confidence"` // 0-100
}

type ToolName string

const (
	ToolGenerateIndex    ToolName = "generateIndex"
	ToolGenerateDocument ToolName = "generateDocument"
	ToolDirectResponse   ToolName = "directResponse"
)

func (t ToolName) Valid() bool {
	switch t {
	case ToolGenerateIndex, ToolGenerateDocument, ToolDirectResponse:
		return true
	}

	return false
}

// true for tools that write to the document
func (t ToolName) Mutating() bool {
	return t == ToolGenerateIndex || t == ToolGenerateDocument
}

type ToolAction struct {
	Tool       ToolName       `json:"tool"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Reasoning  string         `json:"reasoning"`
	Order      int            `json:"order"`
}

type ActionPlan struct {
	Strategy        string       `json:"strategy"`
	ToolsRequired   []ToolAction `json:"toolsRequired"`
	Reasoning       string       `json:"reasoning"`
	ExpectedOutcome string       `json:"expectedOutcome"`
}

// outcome of one tool invocation. tools report failures here instead of
// returning Go errors
type ToolResult[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok[T any](data T) ToolResult[T] {
	return ToolResult[T]{Success: true, Data: &data}
}

func fail[T any](msg string) ToolResult[T] {
	return ToolResult[T]{Success: false, Error: msg}
}

type IndexData struct {
	GeneratedIndex string `json:"generatedIndex"`
}

type DocumentData struct {
	Content  string   `json:"content"`
	Sections []string `json:"sections"`
	Failed   int      `json:"failed"` // sections replaced by an error placeholder
}

type SectionRequest struct {
	DocumentID   string
	UserID       string
	UserRequest  string
	ExtraContext string
}

type SectionPhase string

const (
	SectionStarted   SectionPhase = "started"
	SectionCompleted SectionPhase = "completed"
)

// progress notification from the section batch
type SectionProgress struct {
	Phase   SectionPhase
	Current int // 1-based
	Total   int
	Section string // outline heading
	Text    string // produced text, set when completed
	Failed  bool
}

type ProgressFunc func(SectionProgress)

// inbound agent request
type Request struct {
	// correlates logs and mirrored events; generated when empty
	ID      string              `json:"-"`
	Message string              `json:"message"`
	Context ConversationContext `json:"context"`
}

// terminal result of one request
type Result struct {
	Success         bool     `json:"success"`
	Response        string   `json:"response"`
	ActionsTaken    []string `json:"actionsTaken"`
	NextSuggestions []string `json:"nextSuggestions,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// pipeline stage of a request
type State string

const (
	StateIdle            State = "idle"
	StateAnalyzingIntent State = "analyzing_intent"
	StatePlanning        State = "planning"
	StateExecutingPlan   State = "executing_plan"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// what the dispatcher did with a plan
type DispatchOutcome struct {
	ActionsTaken []string
	Responses    []string
	Aborted      bool
	ToolsRun     []ToolRun
}

type ToolRun struct {
	Tool    ToolName
	Success bool
	Failed  int // failed sections for generateDocument
}

// stores the agent reads from and writes through
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (*documents.Document, error)
	GetOutline(ctx context.Context, documentID string) (*documents.Outline, error)
}

// asynchronous writes with an observable result
type DocumentWriter interface {
	SaveOutline(ctx context.Context, documentID, markdown string) <-chan documents.PersistResult
	SaveContent(ctx context.Context, documentID, content string) <-chan documents.PersistResult
}
