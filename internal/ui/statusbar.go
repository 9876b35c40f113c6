package ui

import (
	"fmt"
	"strings"
	"time"

	"drone-dance.klederson.com/internal/discovery"
	"drone-dance.klederson.com/internal/playback"
	"github.com/charmbracelet/lipgloss"
)

// Counts summarizes the fleet for the status bar.
type Counts map[discovery.State]int

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st playback.State, frame int, counts Counts, dispatched int) string {
	var status string
	if st.Paused {
		status = StyleStatusPaused.Render("[PAUSED]")
	} else {
		status = StyleStatusPlaying.Render("[PLAYING]")
	}

	info := fmt.Sprintf(" %s/%s  Frame: %d  Ready: %d  Connecting: %d  Failed: %d  Sent: %d",
		clock(st.Position), clock(st.Duration), frame,
		counts[discovery.StateReady], counts[discovery.StateConnecting]+counts[discovery.StateDiscovered],
		counts[discovery.StateFailed], dispatched)

	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}

func clock(d time.Duration) string {
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
