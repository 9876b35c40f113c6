package ui

import (
	"drone-dance.klederson.com/internal/discovery"
	"github.com/charmbracelet/lipgloss"
)

// Matrix color palette
var (
	ColorMatrixGreen  = lipgloss.Color("#00FF41")
	ColorGreen        = lipgloss.Color("#00CC33")
	ColorMidGreen     = lipgloss.Color("#008F11")
	ColorDimGreen     = lipgloss.Color("#004A0A")
	ColorBlack        = lipgloss.Color("#000000")
	ColorReady        = lipgloss.Color("#00FFAA")
	ColorConnecting   = lipgloss.Color("#FFCC00")
	ColorBorderBright = lipgloss.Color("#00FF41")
	ColorBorderNorm   = lipgloss.Color("#00AA22")
	ColorError        = lipgloss.Color("#FF3300")
	ColorWarning      = lipgloss.Color("#FFAA00")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorGreen).
			Padding(0, 1)

	StyleStatusPlaying = lipgloss.NewStyle().
				Foreground(ColorMatrixGreen).
				Bold(true)

	StyleStatusPaused = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelActive = StylePanelBorder.
				BorderForeground(ColorBorderBright)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleDeviceName = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleDeviceID = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleDeviceRSSI = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleGridRule = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleGridDot = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleGridKeyframe = lipgloss.NewStyle().
				Foreground(ColorReady).
				Bold(true)

	StylePlayhead = lipgloss.NewStyle().
			Foreground(ColorBlack).
			Background(ColorMatrixGreen).
			Bold(true)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)
)

var stateStyles = map[discovery.State]lipgloss.Style{
	discovery.StateDiscovered: lipgloss.NewStyle().Foreground(ColorMidGreen),
	discovery.StateConnecting: lipgloss.NewStyle().Foreground(ColorConnecting),
	discovery.StateReady:      lipgloss.NewStyle().Foreground(ColorReady).Bold(true),
	discovery.StateFailed:     lipgloss.NewStyle().Foreground(ColorError).Bold(true),
}

// StateStyle returns the style used for a lifecycle state.
func StateStyle(s discovery.State) lipgloss.Style {
	return stateStyles[s]
}

// PanelStyle returns the panel frame, lit while the panel shows activity.
func PanelStyle(active bool) lipgloss.Style {
	if active {
		return StylePanelActive
	}
	return StylePanelBorder
}
