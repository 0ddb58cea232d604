package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F76AB3"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 2)
)

type (
	snapshotMsg snapshot
	errMsg      struct{ err error }
	tickMsg     struct{}
)

type model struct {
	fetch    tea.Cmd
	source   string
	interval time.Duration

	snap   snapshot
	err    error
	paused bool
	polls  int
	width  int

	// polling is true while a fetch or its follow-up tick is outstanding.
	// At most one such chain runs at a time.
	polling bool
}

func newModel(fetch tea.Cmd, source string, interval time.Duration) model {
	return model{fetch: fetch, source: source, interval: interval, polling: true}
}

func (m model) Init() tea.Cmd {
	return m.fetch
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = snapshot(msg)
		m.err = nil
		m.polls++
		return m, m.tick()

	case errMsg:
		m.err = msg.err
		return m, m.tick()

	case tickMsg:
		if m.paused {
			m.polling = false
			return m, nil
		}
		return m, m.fetch

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
			if !m.paused && !m.polling {
				m.polling = true
				return m, m.fetch
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Multi Touch") + "  " + m.source + "\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-5s %-8s %8s %8s %8s %8s %9s %9s %8s %6s",
		"SLOT", "ID", "X", "Y", "DX", "DY", "SX", "SY", "DUR", "FORCE")) + "\n")

	active := 0
	for i, f := range m.snap.Fingers {
		if f == nil {
			b.WriteString(emptyStyle.Render(fmt.Sprintf("%-5d %-8s", i+1, "-")) + "\n")
			continue
		}
		active++
		force := "-"
		if f.Force != nil {
			force = fmt.Sprintf("%.2f", *f.Force)
		}
		fmt.Fprintf(&b, "%-5d %-8d %8.1f %8.1f %8.1f %8.1f %9.1f %9.1f %7.2fs %6s\n",
			f.Index, f.Identifier, f.X, f.Y, f.DX, f.DY, f.SX, f.SY, f.Duration, force)
	}
	if len(m.snap.Fingers) == 0 {
		b.WriteString(emptyStyle.Render("no fingers down") + "\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}

	state := "live"
	if m.paused {
		state = "paused"
	}
	footer := fmt.Sprintf("%d active / %d slots  %s  q quit  p pause", active, m.snap.TableLength, state)
	style := footerStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	b.WriteString(style.Render(footer))
	return b.String()
}
