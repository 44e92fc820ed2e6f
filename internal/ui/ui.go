// Package ui renders dispatcher status in the terminal. The Watch model
// is a live Bubbletea view over dispatcher snapshots; the styles are also
// used by the plain status command.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/calder/relay/internal/dispatch"
	"github.com/calder/relay/internal/tasks"
)

// Styles holds lipgloss styles for relay output.
type Styles struct {
	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Muted     lipgloss.Style
	StatusOK  lipgloss.Style
	StatusErr lipgloss.Style
	Running   lipgloss.Style
	HelpKey   lipgloss.Style
	HelpText  lipgloss.Style
}

// NewStyles creates the default style set.
func NewStyles() *Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#666", Dark: "#888"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	green := lipgloss.AdaptiveColor{Light: "#22863a", Dark: "#3fb950"}
	red := lipgloss.AdaptiveColor{Light: "#cb2431", Dark: "#f85149"}
	blue := lipgloss.AdaptiveColor{Light: "#0366d6", Dark: "#58a6ff"}

	return &Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(highlight).MarginBottom(1),
		Label:     lipgloss.NewStyle().Foreground(subtle),
		Value:     lipgloss.NewStyle().Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(subtle),
		StatusOK:  lipgloss.NewStyle().Foreground(green).Bold(true),
		StatusErr: lipgloss.NewStyle().Foreground(red).Bold(true),
		Running:   lipgloss.NewStyle().Foreground(blue).Bold(true),
		HelpKey:   lipgloss.NewStyle().Foreground(highlight).Bold(true),
		HelpText:  lipgloss.NewStyle().Foreground(subtle),
	}
}

// RenderSnapshot formats a dispatcher snapshot as a small block of lines.
func (s *Styles) RenderSnapshot(snap dispatch.Snapshot) string {
	var b strings.Builder

	state := s.StatusErr.Render("stopped")
	if snap.Running {
		state = s.Running.Render("running")
	}

	b.WriteString(s.Label.Render("State:     ") + state + "\n")
	b.WriteString(s.Label.Render("Agents:    ") + s.Value.Render(strings.Join(snap.Agents, ", ")) + "\n")
	b.WriteString(s.Label.Render("Queued:    ") + s.Value.Render(fmt.Sprintf("%d", snap.QueueSize)) + "\n")
	b.WriteString(s.Label.Render("Completed: ") + s.StatusOK.Render(fmt.Sprintf("%d", snap.CompletedCount)) + "\n")
	b.WriteString(s.Label.Render("Failed:    ") + s.StatusErr.Render(fmt.Sprintf("%d", snap.FailedCount)) + "\n")
	return b.String()
}

// StatusFunc supplies the current dispatcher snapshot.
type StatusFunc func() dispatch.Snapshot

// HistoryFunc supplies recent terminal tasks, newest first.
type HistoryFunc func(n int) []*tasks.Task

// WatchModel is a live view over a running dispatcher.
type WatchModel struct {
	status   StatusFunc
	history  HistoryFunc
	styles   *Styles
	snap     dispatch.Snapshot
	recent   []*tasks.Task
	width    int
	quitting bool
}

// NewWatch creates a watch model over the given snapshot sources.
func NewWatch(status StatusFunc, history HistoryFunc) WatchModel {
	return WatchModel{
		status:  status,
		history: history,
		styles:  NewStyles(),
		width:   80,
	}
}

// tickMsg drives the periodic refresh.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.snap = m.status()
		if m.history != nil {
			m.recent = m.history(10)
		}
		return m, tickCmd()
	}

	return m, nil
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("relay dispatcher") + "\n")
	b.WriteString(m.styles.RenderSnapshot(m.snap))

	if len(m.recent) > 0 {
		b.WriteString("\n" + m.styles.Label.Render("Recent tasks") + "\n")
		for _, t := range m.recent {
			b.WriteString("  " + m.renderTaskLine(t) + "\n")
		}
	}

	b.WriteString("\n" + m.styles.HelpKey.Render("q") + m.styles.HelpText.Render(" quit") + "\n")
	return b.String()
}

func (m WatchModel) renderTaskLine(t *tasks.Task) string {
	status := m.styles.StatusOK.Render(string(t.Status))
	if t.Status == tasks.StatusFailed {
		status = m.styles.StatusErr.Render(string(t.Status))
	}
	return fmt.Sprintf("%s  %s  %s -> %s", status, t.ID, t.Type, t.AssignedAgent)
}
