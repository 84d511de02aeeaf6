package ui

import (
	"os"

	"github.com/arthur-debert/bridgepm/pkg/links"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
)

// Colors adapt to light and dark terminals.
var (
	headingColor = lipgloss.AdaptiveColor{Light: "#212529", Dark: "#F8F9FA"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#ADB5BD"}
	successColor = lipgloss.AdaptiveColor{Light: "#28A745", Dark: "#4CDD76"}
	updateColor  = lipgloss.AdaptiveColor{Light: "#007ACC", Dark: "#3D9EFF"}
	removeColor  = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#DC3545", Dark: "#FF6B7D"}
	bridgeColor  = lipgloss.AdaptiveColor{Light: "#8B5CF6", Dark: "#A78BFA"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(headingColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	nameStyle = lipgloss.NewStyle().
			Bold(true)

	bridgeStyle = lipgloss.NewStyle().
			Foreground(bridgeColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)
)

// statusStyle returns the style used for a package status word.
func statusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusInstalled:
		return lipgloss.NewStyle().Foreground(successColor).Bold(true)
	case types.StatusUpdated:
		return lipgloss.NewStyle().Foreground(updateColor).Bold(true)
	case types.StatusRemoved:
		return lipgloss.NewStyle().Foreground(removeColor).Bold(true)
	case types.StatusFailed:
		return errorStyle
	default:
		return mutedStyle
	}
}

// statusIndicator is the one character marker in front of a report line.
func statusIndicator(s types.Status) string {
	switch s {
	case types.StatusInstalled, types.StatusUpdated:
		return statusStyle(s).Render("✓")
	case types.StatusRemoved:
		return statusStyle(s).Render("-")
	case types.StatusFailed:
		return errorStyle.Render("✗")
	default:
		return mutedStyle.Render("○")
	}
}

// linkStyle colors link states in package tables.
func linkStyle(s links.State) *pterm.Style {
	switch s {
	case links.StateOK:
		return pterm.NewStyle(pterm.FgGreen)
	case links.StateMissing, links.StateDangling:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgYellow)
	}
}

// ErrorLine formats a fatal command error for stderr, in red when stderr is
// a colour terminal.
func ErrorLine(err error) string {
	line := "Error: " + err.Error()
	if DetectFormat(os.Stderr) != FormatTerminal {
		return line
	}
	return errorStyle.Render(line)
}
