package style

import (
	"github.com/charmbracelet/lipgloss"

	"pulse/internal/domain"
)

var (
	// Colors
	Primary = lipgloss.Color("#7C3AED")
	Green   = lipgloss.Color("#10B981")
	Red     = lipgloss.Color("#EF4444")
	Yellow  = lipgloss.Color("#F59E0B")
	Cyan    = lipgloss.Color("#06B6D4")
	Dim     = lipgloss.Color("#6B7280")
	White   = lipgloss.Color("#F9FAFB")

	// Text styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Dim).
			Italic(true)

	Bold = lipgloss.NewStyle().Bold(true).Foreground(White)

	Healthy   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Unhealthy = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Warning   = lipgloss.NewStyle().Foreground(Yellow)
	Accent    = lipgloss.NewStyle().Foreground(Cyan)

	DimText = lipgloss.NewStyle().Foreground(Dim)

	// Status indicators
	DotHealthy   = Healthy.Render("●")
	DotUnhealthy = Unhealthy.Render("●")
	DotWarning   = Warning.Render("●")
	DotDim       = DimText.Render("●")

	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Dim).
			PaddingRight(2)

	ErrorBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Foreground(Red).
			Padding(0, 1).
			MarginTop(1)

	SuccessBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Green).
			Foreground(Green).
			Padding(0, 1)

	// Key-value
	Key = lipgloss.NewStyle().Foreground(Dim).Width(16)
	Val = lipgloss.NewStyle().Foreground(White)
)

// StatusDot colors an endpoint status.
func StatusDot(status domain.EndpointStatus) string {
	switch status {
	case domain.StatusHealthy:
		return DotHealthy
	case domain.StatusDegraded:
		return DotWarning
	case domain.StatusDown:
		return DotUnhealthy
	default:
		return DotDim
	}
}

func StatusText(status domain.EndpointStatus) string {
	switch status {
	case domain.StatusHealthy:
		return Healthy.Render(string(status))
	case domain.StatusDegraded:
		return Warning.Render(string(status))
	case domain.StatusDown:
		return Unhealthy.Render(string(status))
	default:
		return DimText.Render(string(status))
	}
}

func SeverityText(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return Unhealthy.Render(string(s))
	case domain.SeverityMajor:
		return Warning.Render(string(s))
	default:
		return DimText.Render(string(s))
	}
}

func IncidentStatusText(s domain.IncidentStatus) string {
	if s.IsActive() {
		return Warning.Render(string(s))
	}
	return Healthy.Render(string(s))
}

// KV renders one aligned key-value line.
func KV(key, value string) string {
	return "  " + Key.Render(key) + Val.Render(value)
}
