// Package ui holds the Lip Gloss styles shared by the interactive view and the
// one-shot subcommands.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hiroki-koketsu/todo-service/internal/client"
)

var (
	// TitleStyle renders the list heading.
	TitleStyle = lipgloss.NewStyle().Bold(true)
	// SuccessStyle marks completed counts and confirmations.
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	// PendingStyle marks the active count.
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	// AccentStyle highlights labels such as the total.
	AccentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	// MutedStyle is for hints, indexes and deadlines.
	MutedStyle = lipgloss.NewStyle().Faint(true)
	// ErrorStyle renders failures and overdue deadlines.
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	// SelectedStyle marks the cursor row in the interactive list.
	SelectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	// DoneStyle strikes through the text of completed todos.
	DoneStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	// HelpStyle renders the key help line.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// PanelStyle frames the whole list.
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

const (
	// BoxChecked and BoxUnchecked are the completion markers.
	BoxChecked   = "☑"
	BoxUnchecked = "☐"

	// DateLayout is how deadlines are typed and shown.
	DateLayout = "2006-01-02"
)

// Header is the list title with live counts.
func Header(s client.Stats) string {
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		TitleStyle.Render("Todos"),
		SuccessStyle.Render("✔"), s.Completed,
		PendingStyle.Render("•"), s.Active,
		AccentStyle.Render("Total"), s.Total,
	)
}

// Line renders one todo as "☐ text  due 2026-01-02".
func Line(t client.Todo, overdue bool) string {
	box := MutedStyle.Render(BoxUnchecked)
	text := t.Text
	if t.Completed {
		box = SuccessStyle.Render(BoxChecked)
		text = DoneStyle.Render(text)
	}

	line := box + " " + text
	if t.Deadline != nil {
		due := "due " + t.Deadline.UTC().Format(DateLayout)
		if overdue {
			line += "  " + ErrorStyle.Render(due+" overdue")
		} else {
			line += "  " + MutedStyle.Render(due)
		}
	}
	return line
}

// ProgressBar renders done out of total as a bar width cells wide followed
// by "done/total". A non-positive width falls back to 28.
func ProgressBar(done, total, width int) string {
	if width <= 0 {
		width = 28
	}
	filled := 0
	if total > 0 {
		filled = min(max(done, 0)*width/total, width)
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}
