package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	apiagent "codeberg.org/scribe/server/api/rest/agent"
	agentcore "codeberg.org/scribe/server/internal/agent"
	"codeberg.org/scribe/server/internal/stream"
)

const (
	documentCommand = "/doc"

	// rows used by everything except the viewport
	chromeHeight = 8
)

// returns a new chat screen bound to client
func NewChatModel(client *AgentClient, documentID string) *ChatModel {
	ti := textinput.New()
	ti.Placeholder = "무엇을 도와드릴까요? (/doc <id> 로 문서 선택)"
	ti.Focus()
	ti.CharLimit = 8000
	ti.Width = 80
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorWhite)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = infoStyle

	return &ChatModel{
		client:     client,
		documentID: documentID,
		input:      ti,
		spinner:    sp,
		viewport:   viewport.New(80, 20),
		renderer:   newRenderer(80),
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ChatModel) Update(msg tea.Msg) (*ChatModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m, m.submit()

		case "esc":
			if m.fetching && m.cancel != nil {
				m.cancel()
				m.status = "취소하는 중..."
			}

			return m, nil

		case "ctrl+l":
			if m.fetching {
				return m, nil
			}

			m.history = nil
			m.transcript = nil
			m.suggestions = nil
			m.resetRun()
			m.refresh()

			return m, nil
		}

	case agentEventMsg:
		m.apply(msg.message)
		m.refresh()

		return m, waitForEvent(m.events)

	case agentResultMsg:
		m.finish(msg.event.Result)
		m.refresh()

		return m, waitForEvent(m.events)

	case agentErrorMsg:
		m.transcript = append(m.transcript, entry{kind: entryError, text: msg.err.Error()})
		m.refresh()

		return m, waitForEvent(m.events)

	case streamClosedMsg:
		m.fetching = false
		m.events = nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}

		m.status = ""
		m.progress = nil
		m.input.Focus()
		m.refresh()

		return m, nil

	case spinner.TickMsg:
		if !m.fetching {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) submit() tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || m.fetching {
		return nil
	}

	m.input.SetValue("")

	if rest, ok := strings.CutPrefix(query, documentCommand); ok {
		m.documentID = strings.TrimSpace(rest)
		m.transcript = append(m.transcript, entry{kind: entryNote, text: "문서 선택: " + orNone(m.documentID)})
		m.refresh()

		return nil
	}

	req := apiagent.ChatRequest{
		Message: query,
		Context: apiagent.ChatContext{
			DocumentID:          m.documentID,
			ConversationHistory: m.history,
		},
	}

	m.history = append(m.history, agentcore.Message{Role: "user", Content: query})
	m.transcript = append(m.transcript, entry{kind: entryUser, text: query})
	m.resetRun()
	m.fetching = true
	m.status = "요청을 보내는 중..."

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.events = m.client.Start(ctx, req)
	m.refresh()

	return tea.Batch(waitForEvent(m.events), m.spinner.Tick)
}

// folds one streamed message into the run state
func (m *ChatModel) apply(msg stream.Message) {
	tool := ""
	if msg.Metadata != nil {
		tool = msg.Metadata.ToolName
		m.progress = msg.Metadata.Progress
	}

	switch msg.Label {
	case stream.LabelProcessing:
		m.status = msg.Content

	case stream.LabelGenerating:
		// direct responses stream their tokens under GENERATING
		if tool == string(agentcore.ToolDirectResponse) {
			m.reply += msg.Content
			return
		}

		m.status = msg.Content

	case stream.LabelIndexContent:
		m.outline = msg.Content

	case stream.LabelDocumentContent:
		if m.progress != nil && m.progress.Current == 1 {
			m.sections = nil
		}

		m.sections = append(m.sections, msg.Content)

	case stream.LabelFinal:
		m.reply = msg.Content

	case stream.LabelSuccess:
		m.transcript = append(m.transcript, entry{kind: entryNote, text: "✓ " + msg.Content})

	case stream.LabelError:
		m.transcript = append(m.transcript, entry{kind: entryError, text: withTool(tool, msg.Content)})
	}
}

func (m *ChatModel) finish(result agentcore.Result) {
	if doc := m.document(); doc != "" {
		m.transcript = append(m.transcript, entry{kind: entryAssistant, text: doc})
	}

	reply := m.reply
	if reply == "" {
		reply = result.Response
	}

	if reply != "" {
		m.transcript = append(m.transcript, entry{kind: entryAssistant, text: reply})
		m.history = append(m.history, agentcore.Message{Role: "assistant", Content: reply})
	}

	if !result.Success && result.Error != "" {
		m.transcript = append(m.transcript, entry{kind: entryError, text: result.Error})
	}

	m.suggestions = result.NextSuggestions
	m.outline, m.sections, m.reply = "", nil, ""
}

func (m *ChatModel) resetRun() {
	m.status = ""
	m.progress = nil
	m.reply = ""
	m.outline = ""
	m.sections = nil
}

// the document text produced so far in this run, body preferred over outline
func (m *ChatModel) document() string {
	if len(m.sections) > 0 {
		return strings.Join(m.sections, "\n\n")
	}

	return m.outline
}

func (m *ChatModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(10, width-8)
	m.viewport.Width = max(10, width-4)
	m.viewport.Height = max(3, height-chromeHeight)
	m.renderer = newRenderer(m.viewport.Width - 2)
	m.refresh()
}

// re-renders the transcript into the viewport and keeps it scrolled to the end
func (m *ChatModel) refresh() {
	var b strings.Builder

	for _, e := range m.transcript {
		switch e.kind {
		case entryUser:
			b.WriteString(userStyle.Render("you › " + e.text))
			b.WriteString("\n\n")
		case entryAssistant:
			b.WriteString(renderMarkdown(m.renderer, e.text))
			b.WriteString("\n")
		case entryNote:
			b.WriteString(successStyle.Render(e.text))
			b.WriteString("\n")
		case entryError:
			b.WriteString(errorStyle.Render("✗ " + e.text))
			b.WriteString("\n")
		}
	}

	if m.fetching {
		if doc := m.document(); doc != "" {
			b.WriteString(renderMarkdown(m.renderer, doc))
		}

		if m.reply != "" {
			b.WriteString(m.reply)
			b.WriteString("\n")
		}
	}

	if !m.fetching && len(m.suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("다음에 해볼 만한 것:"))
		b.WriteString("\n")
		for _, s := range m.suggestions {
			b.WriteString(infoStyle.Render("  • " + s))
			b.WriteString("\n")
		}
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *ChatModel) View() string {
	var b strings.Builder

	header := commandStyle.Render("SCRIBE")
	doc := infoStyle.Render("document: " + orNone(m.documentID))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, header, "  ", doc))
	b.WriteString("\n")

	b.WriteString(boxStyle.Width(max(10, m.width-2)).Render(m.viewport.View()))
	b.WriteString("\n")

	b.WriteString(boxStyle.Width(max(10, m.width-2)).Padding(0, 1).Render(m.input.View()))
	b.WriteString("\n")

	if m.fetching {
		b.WriteString(m.spinner.View() + " " + infoStyle.Render(m.status+progressLabel(m.progress)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("[Enter: 전송] [Esc: 취소] [Ctrl+L: 초기화] [Ctrl+C: 나가기]"))

	return b.String()
}
