package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple (violet-400)
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red (red-400)
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray (gray-500)
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Agent accent colors, indexed by registry order
	AgentColors = []lipgloss.Color{PrimaryColor, BlueColor}

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Status colors
	StatusIdle    = lipgloss.Color("#9CA3AF") // Gray
	StatusRunning = lipgloss.Color("#10B981") // Green
	StatusPaused  = lipgloss.Color("#60A5FA") // Blue
	StatusErrored = lipgloss.Color("#F87171") // Red

	// Header
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	// Status badge styles
	StatusBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(SurfaceColor).
			Padding(0, 1).
			MarginRight(1)

	// Column around one agent's messages in the split view
	Column = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	ColumnTitle = lipgloss.NewStyle().
			Bold(true)

	// Timeline area
	Timeline = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	Timestamp = lipgloss.NewStyle().
			Foreground(MutedColor)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Error message
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Info message
	InfoMsg = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	// Error marker entries in the transcript
	ErrorEntry = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Italic(true)
)

// StatusColor returns the color for a given conversation status
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "running":
		return StatusRunning
	case "paused":
		return StatusPaused
	case "errored":
		return StatusErrored
	default:
		return StatusIdle
	}
}

// StatusIcon returns an icon for a given conversation status
func StatusIcon(status string) string {
	switch status {
	case "running":
		return "●"
	case "paused":
		return "⏸"
	case "errored":
		return "✗"
	default:
		return "○"
	}
}

// AgentColor returns the accent color for the agent at index i in
// registry order.
func AgentColor(i int) lipgloss.Color {
	if i < 0 {
		return MutedColor
	}
	return AgentColors[i%len(AgentColors)]
}

// AgentName renders an agent's name in its accent color.
func AgentName(i int, name string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(AgentColor(i)).Render(name)
}
