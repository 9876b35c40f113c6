package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout stacks the timeline grid over the history panel on the
// left, puts the drone list on the right, and frames both with the menu
// and status bars.
func ComposeLayout(menuBar, gridPanel, historyPanel, deviceList, statusBar string) string {
	left := lipgloss.JoinVertical(lipgloss.Left, gridPanel, historyPanel)
	middle := lipgloss.JoinHorizontal(lipgloss.Top, left, deviceList)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}
