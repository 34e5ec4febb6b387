// Package patchtui renders live pipeline progress as a terminal dashboard.
// It consumes the engine's event stream; the engine itself never knows
// whether a UI is attached.
package patchtui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/progress"
)

type row struct {
	File     string
	Status   model.FileStatus
	Findings int
	Applied  int
	Skipped  int

	// Verified is set once the file's probes ran; Pass is only meaningful
	// when Verified is true.
	Verified bool
	Pass     bool
	LastNote string
}

type eventMsg progress.Event

type doneMsg struct{}

type uiModel struct {
	events <-chan progress.Event

	rows    []row
	index   map[string]int
	total   int
	outcome string
	done    bool
	width   int
}

func newModel(events <-chan progress.Event) uiModel {
	return uiModel{
		events: events,
		index:  make(map[string]int),
		width:  100,
	}
}

func waitForEvent(events <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(e)
	}
}

func (m uiModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 20 {
			m.width = msg.Width
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case eventMsg:
		m = m.apply(progress.Event(msg))
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	default:
		return m, nil
	}
}

func (m uiModel) apply(e progress.Event) uiModel {
	switch e.Type {
	case progress.EventRunStarted:
		m.total = e.Files
	case progress.EventRunFinished:
		m.outcome = e.Message
		m.done = true
	case progress.EventFileStarted, progress.EventFileScanned,
		progress.EventPatchApplied, progress.EventPatchSkipped,
		progress.EventFileVerified, progress.EventFileError:
		i := m.rowFor(e.File)
		r := m.rows[i]
		if e.Status != "" {
			r.Status = e.Status
		}
		switch e.Type {
		case progress.EventFileScanned:
			r.Findings = e.Findings
		case progress.EventPatchApplied:
			r.Applied++
			r.LastNote = e.PatchID
		case progress.EventPatchSkipped:
			r.Skipped++
			r.LastNote = fmt.Sprintf("%s: %s", e.PatchID, e.Reason)
		case progress.EventFileVerified:
			r.Verified = true
			r.Pass = e.ProbePass
		case progress.EventFileError:
			r.LastNote = e.Message
		}
		m.rows[i] = r
	}
	return m
}

func (m *uiModel) rowFor(file string) int {
	if i, ok := m.index[file]; ok {
		return i
	}
	m.index[file] = len(m.rows)
	m.rows = append(m.rows, row{File: file, Status: model.StatusUnscanned})
	return len(m.rows) - 1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func statusCell(r row) string {
	if r.Verified {
		if r.Pass {
			return "pass"
		}
		return "FAIL"
	}
	return strings.ReplaceAll(string(r.Status), "_", " ")
}
