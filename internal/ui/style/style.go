// Package style provides shared UI styling primitives including brand colors,
// icons and table styles for consistent presentation across the CLI.
package style

import "github.com/charmbracelet/lipgloss"

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	White  = lipgloss.Color("#FFFFFF")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Arrow   = "→"
	Dot     = "●"
)

// Table styles.
var (
	Header = lipgloss.NewStyle().Bold(true).Foreground(Iris).Padding(0, 1)
	Cell   = lipgloss.NewStyle().Padding(0, 1)
	Key    = lipgloss.NewStyle().Foreground(Slate).Padding(0, 1)
	Border = lipgloss.NewStyle().Foreground(Slate)
)

// Success renders a success line.
func Success(msg string) string {
	return lipgloss.NewStyle().Foreground(Green).Render(Check + " " + msg)
}

// Warn renders a warning line.
func Warn(msg string) string {
	return lipgloss.NewStyle().Foreground(Yellow).Render(Warning + " " + msg)
}
