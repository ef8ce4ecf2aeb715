package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ShellHandler mutates model state for commands the shell handles itself.
type ShellHandler func(Model, []string) (Model, tea.Cmd)

// ShellCommand describes a built-in shell command.
type ShellCommand struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     ShellHandler
}

var shellCommands = map[string]ShellCommand{}

func init() {
	registerShellCommand(ShellCommand{
		Name:        "help",
		Aliases:     []string{"h", "?"},
		Description: "Show available commands",
		Usage:       "/help",
		Handler:     handleHelp,
	})
	registerShellCommand(ShellCommand{
		Name:        "open",
		Aliases:     []string{"o"},
		Description: "Open a file in a new tab",
		Usage:       "/open <path>",
		Handler:     handleOpen,
	})
	registerShellCommand(ShellCommand{
		Name:        "tab",
		Description: "Switch to a tab",
		Usage:       "/tab <n>",
		Handler:     handleTab,
	})
	registerShellCommand(ShellCommand{
		Name:        "tabs",
		Aliases:     []string{"ls"},
		Description: "List open tabs",
		Usage:       "/tabs",
		Handler:     handleTabs,
	})
	registerShellCommand(ShellCommand{
		Name:        "settings",
		Description: "Open the settings tab",
		Usage:       "/settings",
		Handler:     handleSettings,
	})
	registerShellCommand(ShellCommand{
		Name:        "clear",
		Aliases:     []string{"cls"},
		Description: "Clear the feed",
		Usage:       "/clear",
		Handler:     handleClear,
	})
}

func registerShellCommand(cmd ShellCommand) {
	shellCommands[cmd.Name] = cmd
}

func lookupShellCommand(name string) (ShellCommand, bool) {
	if cmd, ok := shellCommands[name]; ok {
		return cmd, true
	}
	for _, registered := range shellCommands {
		for _, alias := range registered.Aliases {
			if alias == name {
				return registered, true
			}
		}
	}
	return ShellCommand{}, false
}

// parseCommand splits slash-prefixed input into command + args.
func parseCommand(input string) (string, []string) {
	parts := strings.Fields(input)
	if len(parts) == 0 || !strings.HasPrefix(parts[0], "/") {
		return "", nil
	}
	return strings.TrimPrefix(parts[0], "/"), parts[1:]
}

// commandResultMsg carries the outcome of a slash command run off the UI
// goroutine.
type commandResultMsg struct {
	name     string
	argument string
	text     string
	err      error
	elapsed  time.Duration
}

// handleCommand dispatches to a shell command first, then to the slash
// command registry.
func handleCommand(m Model, name string, args []string) (Model, tea.Cmd) {
	if name == "" {
		return m, nil
	}
	if cmd, ok := lookupShellCommand(name); ok {
		return cmd.Handler(m, args)
	}
	for _, registered := range m.backend.Commands() {
		if registered.Name() == name {
			return m.invoke(name, strings.Join(args, " "))
		}
	}
	return m.addSystemMessage(fmt.Sprintf("Unknown command: /%s", name)), nil
}

func (m Model) invoke(name, argument string) (Model, tea.Cmd) {
	if m.pending != "" {
		return m.addSystemMessage(fmt.Sprintf("/%s is still running", m.pending)), nil
	}
	m.pending = name
	ctx, backend := m.ctx, m.backend
	run := func() tea.Msg {
		started := time.Now()
		out, err := backend.Invoke(ctx, name, argument)
		return commandResultMsg{name: name, argument: argument, text: out.Text, err: err, elapsed: time.Since(started)}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) handleCommandResult(msg commandResultMsg) Model {
	m.pending = ""
	title := "/" + msg.name
	if msg.argument != "" {
		title += " " + msg.argument
	}
	if msg.err != nil {
		return m.addError(title, msg.err)
	}
	return m.addMessage(Message{Role: RoleOutput, Title: title, Text: msg.text, Duration: msg.elapsed})
}

func handleHelp(m Model, _ []string) (Model, tea.Cmd) {
	names := make([]string, 0, len(shellCommands))
	for name := range shellCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Slash commands:\n")
	for _, cmd := range m.backend.Commands() {
		b.WriteString(fmt.Sprintf("  /%s - %s\n", cmd.Name(), cmd.Description()))
	}
	b.WriteString("\nShell commands:\n")
	for _, name := range names {
		cmd := shellCommands[name]
		b.WriteString(fmt.Sprintf("  %s - %s\n", cmd.Usage, cmd.Description))
	}
	return m.addSystemMessage(strings.TrimRight(b.String(), "\n")), nil
}

// shellResultMsg carries the outcome of a shell command that had to reach
// the backend.
type shellResultMsg struct {
	title string
	text  string
	err   error
}

// runShell performs fn off the UI goroutine. It shares the pending slot with
// slash commands so backend calls from the shell stay in submission order.
func (m Model) runShell(name, title string, fn func(ctx context.Context, backend Backend) (string, error)) (Model, tea.Cmd) {
	if m.pending != "" {
		return m.addSystemMessage(fmt.Sprintf("/%s is still running", m.pending)), nil
	}
	m.pending = name
	ctx, backend := m.ctx, m.backend
	run := func() tea.Msg {
		text, err := fn(ctx, backend)
		return shellResultMsg{title: title, text: text, err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) handleShellResult(msg shellResultMsg) Model {
	m.pending = ""
	if msg.err != nil {
		return m.addError(msg.title, msg.err)
	}
	return m.addSystemMessage(msg.text)
}

func handleOpen(m Model, args []string) (Model, tea.Cmd) {
	if len(args) == 0 {
		return m.addSystemMessage("Usage: /open <path>"), nil
	}
	path := strings.Join(args, " ")
	return m.runShell("open", "/open "+path, func(ctx context.Context, backend Backend) (string, error) {
		index, err := backend.OpenFile(ctx, path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Opened %s in tab %d", path, index), nil
	})
}

func handleTab(m Model, args []string) (Model, tea.Cmd) {
	if len(args) != 1 {
		return m.addSystemMessage("Usage: /tab <n>"), nil
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return m.addSystemMessage("Usage: /tab <n>"), nil
	}
	return m.runShell("tab", "/tab", func(ctx context.Context, backend Backend) (string, error) {
		if err := backend.ActivateTab(ctx, index); err != nil {
			return "", err
		}
		return listTabs(ctx, backend)
	})
}

func handleTabs(m Model, _ []string) (Model, tea.Cmd) {
	return m.runShell("tabs", "/tabs", listTabs)
}

func listTabs(ctx context.Context, backend Backend) (string, error) {
	tabs, err := backend.Tabs(ctx)
	if err != nil {
		return "", err
	}
	if len(tabs) == 0 {
		return "No open tabs", nil
	}
	var b strings.Builder
	for _, tab := range tabs {
		marker := " "
		if tab.Active {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("%s %d %s\n", marker, tab.Index, tab.Title))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func handleSettings(m Model, _ []string) (Model, tea.Cmd) {
	return m.runShell("settings", "/settings", func(ctx context.Context, backend Backend) (string, error) {
		if err := backend.OpenSettings(ctx); err != nil {
			return "", err
		}
		return "Opened settings", nil
	})
}

func handleClear(m Model, _ []string) (Model, tea.Cmd) {
	m.messages = nil
	return m.refreshFeed(), nil
}
