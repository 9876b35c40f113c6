package ui

import (
	"fmt"
	"strings"
	"time"
)

// Event is one line of the dispatch history.
type Event struct {
	At     time.Time
	Device string
	Motion string
	Frame  int // -1 for manual commands
	Status string
	Err    string
}

// RenderHistoryPanel lists the most recent dispatches, newest first.
func RenderHistoryPanel(events []Event, width, height int) string {
	innerW := width - 4
	innerH := height - 2
	if innerW < 20 {
		innerW = 20
	}
	if innerH < 2 {
		innerH = 2
	}

	lines := []string{StylePanelTitle.Render("DISPATCH LOG")}
	if len(events) == 0 {
		lines = append(lines, StyleHelp.Render(" Nothing sent yet"))
	}
	for i := len(events) - 1; i >= 0 && len(lines) < innerH; i-- {
		lines = append(lines, renderEvent(events[i], innerW))
	}
	for len(lines) < innerH {
		lines = append(lines, "")
	}

	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(lines, "\n"))
	return clampLines(rendered, height)
}

func renderEvent(e Event, maxW int) string {
	where := "manual"
	if e.Frame >= 0 {
		where = fmt.Sprintf("f%-4d", e.Frame)
	}
	dev := e.Device
	if len(dev) > 8 {
		dev = dev[:8]
	}

	raw := fmt.Sprintf(" %s %-6s %-8s %-9s %s", e.At.Format("15:04:05"), where, dev, e.Motion, e.Status)
	if e.Err != "" {
		raw += " " + e.Err
	}
	raw = strings.TrimRight(truncRaw(raw, maxW), " ")

	switch e.Status {
	case "sent":
		return StyleMenuLabel.Render(raw)
	case "not_ready":
		return StyleStatusPaused.Render(raw)
	default:
		return StyleError.Render(raw)
	}
}
