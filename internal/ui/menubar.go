package ui

import (
	"fmt"
	"strings"

	"drone-dance.klederson.com/internal/config"
	"github.com/charmbracelet/lipgloss"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, adapter string, rehearse, playing bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"T", "akeoff"},
		{"L", "and"},
		{"Q", "uit"},
	}
	if rehearse {
		keys = append([]struct{ key, label string }{
			{"SPC", "play"},
			{"</>", "seek"},
			{"R", "ewind"},
		}, keys...)
	}

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	var status string
	switch {
	case !rehearse:
		status = StyleStatusPlaying.Render("LIVE")
	case playing:
		status = StyleStatusPlaying.Render("REHEARSING")
	default:
		status = StyleStatusPaused.Render("PAUSED")
	}

	adapterInfo := StyleMenuLabel.Render(fmt.Sprintf("Adapter: %s", adapter))

	left := StyleMenuKey.Render(title) + menu
	right := status + "  " + adapterInfo + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
