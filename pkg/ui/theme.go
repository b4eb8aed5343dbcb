package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Task state
	Pending   lipgloss.AdaptiveColor
	Done      lipgloss.AdaptiveColor
	Overdue   lipgloss.AdaptiveColor
	Assignee  lipgloss.AdaptiveColor
	Category  lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles, created once so the render loop does not allocate per cell.
	Base         lipgloss.Style
	Selected     lipgloss.Style
	Header       lipgloss.Style
	CategoryCell lipgloss.Style
	DoneText     lipgloss.Style
	OverdueText  lipgloss.Style
	MutedText    lipgloss.Style
	StatusBar    lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Pending:   lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Done:      lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Overdue:   lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Assignee:  lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#6699FF"},
		Category:  lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.CategoryCell = r.NewStyle().Foreground(t.Category).Bold(true)
	t.DoneText = r.NewStyle().Foreground(t.Done)
	t.OverdueText = r.NewStyle().Foreground(t.Overdue).Bold(true)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.StatusBar = r.NewStyle().Foreground(t.Subtext).Italic(true)

	return t
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
