package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func NewApp(config Config) *Model {
	return &Model{
		state:   StateWelcome,
		config:  config,
		welcome: NewWelcome(config.Mode),
		chat:    NewChatModel(NewAgentClient(config), config.DocumentID),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// errors are dismissed first, then chat returns to the welcome screen
			switch {
			case m.err != nil:
				m.err = nil
				return m, nil
			case m.state == StateChat:
				m.state = StateWelcome
				return m, nil
			default:
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// the chat keeps its layout even while the welcome screen is shown
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)

		return m, cmd

	case ErrorMsg:
		m.err = msg.err
		return m, nil

	case EnterChatMsg:
		m.state = StateChat
		if m.width > 0 {
			m.chat.resize(m.width, m.height)
		}

		return m, m.chat.Init()

	case agentEventMsg, agentResultMsg, agentErrorMsg, streamClosedMsg, spinner.TickMsg:
		// a run keeps streaming when the user steps back to the welcome screen
		return m.updateChat(msg)
	}

	switch m.state {
	case StateWelcome:
		return m.updateWelcome(msg)

	case StateChat:
		return m.updateChat(msg)

	default:
		return m, nil
	}
}

func (m *Model) View() string {
	if m.err != nil {
		return errorView(m.err)
	}

	switch m.state {
	case StateWelcome:
		return m.welcome.View()

	case StateChat:
		return m.chat.View()

	default:
		return "Unknown state"
	}
}

func (m *Model) updateWelcome(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.welcome, cmd = m.welcome.Update(msg)

	return m, cmd
}

func (m *Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)

	return m, cmd
}

func errorView(err error) string {
	return fmt.Sprintf("\n  Error: %v\n\n  Press Ctrl+C to dismiss\n", err)
}
