package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	tea "github.com/charmbracelet/bubbletea"

	apiagent "codeberg.org/scribe/server/api/rest/agent"
	agentcore "codeberg.org/scribe/server/internal/agent"
	"codeberg.org/scribe/server/internal/stream"
)

// represents the current state of the TUI
type AppState int

const (
	StateWelcome AppState = iota
	StateChat
)

// connection settings, read from the environment by ConfigFromEnv
type Config struct {
	Mode       string
	Endpoint   string
	Token      string
	DocumentID string
}

// main TUI application model
type Model struct {
	state   AppState
	config  Config
	width   int
	height  int
	err     error
	welcome *Welcome
	chat    *ChatModel
}

// sent when an error occurs
type ErrorMsg struct {
	err error
}

// sent to transition to the chat state
type EnterChatMsg struct{}

// sent when the local server has been launched
type ServerStartedMsg struct{}

// one streamed agent message
type agentEventMsg struct {
	message stream.Message
}

// the terminal result of a run
type agentResultMsg struct {
	event apiagent.ResultEvent
}

// the request failed or the stream broke
type agentErrorMsg struct {
	err error
}

// the event channel of the current run is drained
type streamClosedMsg struct{}

// one block of the chat transcript
type entry struct {
	kind entryKind
	text string
}

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryNote
	entryError
)

// chat screen: transcript, live document preview and input
type ChatModel struct {
	client     *AgentClient
	documentID string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	width    int
	height   int

	history     []agentcore.Message
	transcript  []entry
	suggestions []string

	// state of the run in flight
	fetching bool
	events   <-chan tea.Msg
	cancel   context.CancelFunc
	status   string
	progress *stream.Progress
	reply    string
	outline  string
	sections []string
}

// welcome screen model
type Welcome struct {
	mode     string
	input    string
	commands []Command
}

// represents an available TUI command
type Command struct {
	Name        string
	Description string
	Available   bool
}
