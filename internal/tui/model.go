// Package tui is the interactive shell: a prompt that runs slash commands
// against the live workspace and shows their output in a scrolling feed.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/slashcmd/framework"
	runtimesvc "github.com/lexcodex/slashcmd/internal/runtime"
)

// Backend is the part of the runtime the shell drives.
type Backend interface {
	Commands() []framework.SlashCommand
	Invoke(ctx context.Context, name, argument string) (framework.Output, error)
	OpenFile(ctx context.Context, path string) (int, error)
	OpenSettings(ctx context.Context) error
	ActivateTab(ctx context.Context, index int) error
	Tabs(ctx context.Context) ([]runtimesvc.Tab, error)
}

var _ Backend = (*runtimesvc.Runtime)(nil)

// Run starts the shell and blocks until the user quits.
func Run(ctx context.Context, backend Backend, workspace string) error {
	if backend == nil {
		return fmt.Errorf("runtime is required")
	}
	program := tea.NewProgram(NewModel(ctx, backend, workspace), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Role identifies who produced a feed entry.
type Role string

const (
	RoleUser   Role = "user"
	RoleOutput Role = "output"
	RoleSystem Role = "system"
	RoleError  Role = "error"
)

// Message is one entry in the feed.
type Message struct {
	Role      Role
	Title     string
	Text      string
	Timestamp time.Time
	Duration  time.Duration
}

// Model implements tea.Model.
type Model struct {
	ctx       context.Context
	backend   Backend
	workspace string

	feed    *viewport.Model
	input   textinput.Model
	spinner spinner.Model

	messages []Message
	pending  string

	width  int
	height int
	ready  bool
}

// NewModel builds the shell model.
func NewModel(ctx context.Context, backend Backend, workspace string) Model {
	input := textinput.New()
	input.Placeholder = "/outline, /open <path>, /help"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorSecondary)

	return Model{
		ctx:       ctx,
		backend:   backend,
		workspace: workspace,
		input:     input,
		spinner:   sp,
	}
}

// Messages returns the feed entries.
func (m Model) Messages() []Message {
	return append([]Message(nil), m.messages...)
}

func (m Model) addMessage(msg Message) Model {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.messages = append(m.messages, msg)
	return m.refreshFeed()
}

func (m Model) addSystemMessage(text string) Model {
	return m.addMessage(Message{Role: RoleSystem, Text: text})
}

func (m Model) addError(title string, err error) Model {
	return m.addMessage(Message{Role: RoleError, Title: title, Text: err.Error()})
}

func (m Model) refreshFeed() Model {
	if m.feed == nil {
		return m
	}
	m.feed.SetContent(m.renderMessages())
	m.feed.GotoBottom()
	return m
}
