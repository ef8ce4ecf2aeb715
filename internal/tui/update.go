package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Init fulfills the Bubble Tea Model interface.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update applies incoming Bubble Tea messages to the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case commandResultMsg:
		return m.handleCommandResult(msg), nil
	case shellResultMsg:
		return m.handleShellResult(msg), nil
	case spinner.TickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	statusBarHeight := 1
	promptBarHeight := 1
	feedHeight := max(1, msg.Height-statusBarHeight-promptBarHeight)

	if !m.ready {
		v := viewport.New(msg.Width, feedHeight)
		m.feed = &v
		m.ready = true
	} else {
		m.feed.Width = msg.Width
		m.feed.Height = feedHeight
	}
	m.input.Width = max(10, msg.Width-4)
	return m.refreshFeed(), nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "ctrl+d":
		return m, tea.Quit
	case "ctrl+l":
		return handleClear(m, nil)
	case "enter":
		return m.submitPrompt()
	case "esc":
		m.input.SetValue("")
		return m, nil
	case "up", "down", "pgup", "pgdown":
		if m.feed == nil {
			return m, nil
		}
		var cmd tea.Cmd
		*m.feed, cmd = m.feed.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if raw == "" {
		return m, nil
	}
	if !strings.HasPrefix(raw, "/") {
		return m.addSystemMessage("Commands start with /. Try /help."), nil
	}
	m = m.addMessage(Message{Role: RoleUser, Text: raw})
	name, args := parseCommand(raw)
	return handleCommand(m, name, args)
}
