package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// theme is a color scheme for the calculator.
type theme struct {
	name   string
	accent lipgloss.Color
	text   lipgloss.Color
	muted  lipgloss.Color
	key    lipgloss.Color
	op     lipgloss.Color
	err    lipgloss.Color
	border lipgloss.Border
}

var themes = []theme{
	{
		name:   "default",
		accent: lipgloss.Color("#8B5CF6"), // Violet
		text:   lipgloss.Color("#F8FAFC"),
		muted:  lipgloss.Color("#94A3B8"),
		key:    lipgloss.Color("#E2E8F0"),
		op:     lipgloss.Color("#F59E0B"), // Amber
		err:    lipgloss.Color("#EF4444"),
		border: lipgloss.RoundedBorder(),
	},
	{
		name:   "minimal",
		accent: lipgloss.Color("#D4D4D4"),
		text:   lipgloss.Color("#FAFAFA"),
		muted:  lipgloss.Color("#737373"),
		key:    lipgloss.Color("#D4D4D4"),
		op:     lipgloss.Color("#FAFAFA"),
		err:    lipgloss.Color("#FAFAFA"),
		border: lipgloss.NormalBorder(),
	},
	{
		name:   "pastel",
		accent: lipgloss.Color("#F9A8D4"), // Pink
		text:   lipgloss.Color("#FDF2F8"),
		muted:  lipgloss.Color("#C4B5FD"),
		key:    lipgloss.Color("#A7F3D0"), // Mint
		op:     lipgloss.Color("#FDE68A"),
		err:    lipgloss.Color("#FCA5A5"),
		border: lipgloss.RoundedBorder(),
	},
	{
		name:   "terminal",
		accent: lipgloss.Color("#22C55E"), // Green
		text:   lipgloss.Color("#4ADE80"),
		muted:  lipgloss.Color("#15803D"),
		key:    lipgloss.Color("#4ADE80"),
		op:     lipgloss.Color("#BBF7D0"),
		err:    lipgloss.Color("#F87171"),
		border: lipgloss.ASCIIBorder(),
	},
	{
		name:   "twilight",
		accent: lipgloss.Color("#6366F1"), // Indigo
		text:   lipgloss.Color("#E0E7FF"),
		muted:  lipgloss.Color("#64748B"),
		key:    lipgloss.Color("#C7D2FE"),
		op:     lipgloss.Color("#F472B6"),
		err:    lipgloss.Color("#FB7185"),
		border: lipgloss.DoubleBorder(),
	},
}

// themeIndex returns the index of the named theme, or 0 if there is none.
func themeIndex(name string) int {
	for i, t := range themes {
		if t.name == name {
			return i
		}
	}
	return 0
}

type styles struct {
	title  lipgloss.Style
	input  lipgloss.Style
	result lipgloss.Style
	key    lipgloss.Style
	op     lipgloss.Style
	err    lipgloss.Style
	help   lipgloss.Style
}

func (t theme) styles() styles {
	return styles{
		title: lipgloss.NewStyle().Foreground(t.accent).Bold(true),
		input: lipgloss.NewStyle().
			Border(t.border).
			BorderForeground(t.accent).
			Padding(0, 1),
		result: lipgloss.NewStyle().Foreground(t.text).Bold(true).Padding(0, 1),
		key:    lipgloss.NewStyle().Foreground(t.key).Width(5).Align(lipgloss.Center),
		op:     lipgloss.NewStyle().Foreground(t.op).Bold(true).Width(5).Align(lipgloss.Center),
		err: lipgloss.NewStyle().
			Foreground(t.err).
			Border(t.border).
			BorderForeground(t.err).
			Padding(0, 1),
		help: lipgloss.NewStyle().Foreground(t.muted).Italic(true),
	}
}
