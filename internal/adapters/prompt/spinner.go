package prompt

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/modkit/internal/ui/style"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

type (
	tickMsg time.Time
	doneMsg struct{ err error }
)

type spinner struct {
	label string
	frame int
	done  bool
	err   error
}

func newSpinner(label string) *spinner {
	return &spinner{label: label}
}

func tick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (s *spinner) Init() tea.Cmd {
	return tick()
}

func (s *spinner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if s.done {
			return s, nil
		}
		s.frame = (s.frame + 1) % len(spinnerFrames)
		return s, tick()
	case doneMsg:
		s.done = true
		s.err = msg.err
		return s, tea.Quit
	}
	return s, nil
}

func (s *spinner) View() string {
	if !s.done {
		return lipgloss.NewStyle().Foreground(style.Iris).Render(spinnerFrames[s.frame]) + " " + s.label + "\n"
	}
	if s.err != nil {
		return lipgloss.NewStyle().Foreground(style.Red).Render(style.Cross) + " " + s.label + "\n"
	}
	return lipgloss.NewStyle().Foreground(style.Green).Render(style.Check) + " " + s.label + "\n"
}
