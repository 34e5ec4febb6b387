package patchtui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m uiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("redress"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("files: %d/%d\n\n", len(m.rows), m.total))

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-9s %-5s %-8s %s",
		"STATUS", "FIND", "PATCHES", "FILE")))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(mutedStyle.Render("(waiting for files)"))
		b.WriteString("\n")
	}
	for _, r := range m.rows {
		patches := "-"
		if r.Applied+r.Skipped > 0 {
			patches = fmt.Sprintf("%d/%d", r.Applied, r.Applied+r.Skipped)
		}
		line := fmt.Sprintf("%-9s %-5d %-8s %s",
			statusCell(r), r.Findings, patches,
			truncate(r.File, max(20, m.width-28)))

		style := mutedStyle
		switch {
		case r.Verified && !r.Pass:
			style = errorStyle
		case r.Verified:
			style = successStyle
		case r.Skipped > 0:
			style = warningStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
		if r.LastNote != "" {
			b.WriteString(mutedStyle.Render("          " + truncate(r.LastNote, max(20, m.width-12))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.done {
		style := successStyle
		if m.outcome != "ok" {
			style = errorStyle
		}
		b.WriteString(style.Render("run finished: " + m.outcome))
	} else {
		b.WriteString(mutedStyle.Render("q quit"))
	}
	b.WriteString("\n")
	return b.String()
}
