package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("39")
	colorSecondary = lipgloss.Color("86")
	colorError     = lipgloss.Color("196")
	colorDim       = lipgloss.Color("241")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	userStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	outputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	promptBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Padding(0, 1)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)
)

// View composes the feed, prompt bar, and status bar.
func (m Model) View() string {
	if !m.ready || m.feed == nil {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.feed.View(), m.renderPromptBar(), m.renderStatusBar())
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return welcomeStyle.Render("Open a file with /open <path>, then try /outline.")
	}
	rendered := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		rendered = append(rendered, renderMessage(msg, m.width))
	}
	return strings.Join(rendered, "\n")
}

func renderMessage(msg Message, width int) string {
	switch msg.Role {
	case RoleUser:
		return userStyle.Render("> " + msg.Text)
	case RoleOutput:
		header := headerStyle.Render(msg.Title)
		if msg.Duration > 0 {
			header += dimStyle.Render(fmt.Sprintf(" (%s)", msg.Duration.Round(time.Millisecond)))
		}
		box := outputBoxStyle
		if width > 4 {
			box = box.Width(width - 2)
		}
		return header + "\n" + box.Render(strings.TrimRight(msg.Text, "\n"))
	case RoleError:
		return errorStyle.Render(fmt.Sprintf("%s: %s", msg.Title, msg.Text))
	default:
		return dimStyle.Render(msg.Text)
	}
}

func (m Model) renderPromptBar() string {
	content := m.input.View()
	if m.pending != "" {
		content = m.spinner.View() + " /" + m.pending + " running"
	}
	return promptBarStyle.Width(m.width).Render(content)
}

func (m Model) renderStatusBar() string {
	return statusStyle.Width(m.width).Render(fmt.Sprintf("%s | %d entries | ctrl+c to quit", m.workspace, len(m.messages)))
}
