package ui

import (
	"fmt"
	"strings"
	"time"

	"drone-dance.klederson.com/internal/discovery"
	"github.com/charmbracelet/lipgloss"
)

// Cursor row style: black text on bright green = unmissable highlight
var cursorRowSty = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#000000")).
	Background(ColorMatrixGreen).
	Bold(true)

// RenderDeviceList renders the scrollable drone list panel with cursor.
// The header stays fixed at the top; only the entries scroll.
func RenderDeviceList(devices []discovery.Device, width, height int, cursorIndex int) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}

	title := StylePanelTitle.Render(fmt.Sprintf("DRONES [%d]", len(devices)))
	separator := StyleGridRule.Render(strings.Repeat("-", innerW))
	headerLines := []string{title, separator}
	headerCount := len(headerLines)

	innerH := height - 2
	if innerH < headerCount+1 {
		innerH = headerCount + 1
	}

	devSpace := innerH - headerCount
	if devSpace < 1 {
		devSpace = 1
	}

	var devLines []string
	if len(devices) == 0 {
		devLines = append(devLines, "")
		devLines = append(devLines, StyleHelp.Render(" No drones..."))
		devLines = append(devLines, StyleHelp.Render(" Waiting for scan"))
	} else {
		linesPerDevice := 4 // 3 content + 1 blank
		maxVisible := devSpace / linesPerDevice
		if maxVisible < 1 {
			maxVisible = 1
		}

		viewStart := 0
		if cursorIndex >= maxVisible {
			viewStart = cursorIndex - maxVisible + 1
		}

		count := 0
		for i := viewStart; i < len(devices) && count < devSpace; i++ {
			for _, l := range renderDeviceEntry(devices[i], innerW, i == cursorIndex) {
				if count >= devSpace {
					break
				}
				devLines = append(devLines, l)
				count++
			}
		}
	}

	for len(devLines) < devSpace {
		devLines = append(devLines, "")
	}

	all := make([]string, 0, innerH)
	all = append(all, headerLines...)
	all = append(all, devLines...)
	if len(all) > innerH {
		all = all[:innerH]
	}

	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(all, "\n"))
	return clampLines(rendered, height)
}

func renderDeviceEntry(d discovery.Device, maxW int, isCursor bool) []string {
	name := d.Name
	if name == "" {
		name = callsign(d.ID)
	}
	nameMax := maxW - 16
	if nameMax < 4 {
		nameMax = 4
	}
	if len(name) > nameMax {
		name = name[:nameMax]
	}

	cursor := "  "
	if isCursor {
		cursor = ">>"
	}

	id := d.ID
	if len(id) > maxW-7 && maxW > 7 {
		id = id[:maxW-7]
	}

	tag := "[" + strings.ToUpper(d.State.String()) + "]"
	rssi := fmt.Sprintf("%ddBm", d.RSSI)
	detail := ""
	switch {
	case d.State == discovery.StateFailed && d.Err != nil:
		detail = d.Err.Error()
	case d.State == discovery.StateReady && !d.ReadyAt.IsZero() && !d.DiscoveredAt.IsZero():
		detail = "up in " + d.ReadyAt.Sub(d.DiscoveredAt).Round(100 * time.Millisecond).String()
	}

	if isCursor {
		return []string{
			cursorRowSty.Render(truncRaw(fmt.Sprintf("%s %s %s", cursor, name, tag), maxW)),
			cursorRowSty.Render(truncRaw("     "+id, maxW)),
			cursorRowSty.Render(truncRaw(fmt.Sprintf("     %s  %s", rssi, detail), maxW)),
			"",
		}
	}

	state := StateStyle(d.State)
	line3 := fmt.Sprintf("     %s", StyleDeviceRSSI.Render(rssi))
	if detail != "" {
		room := maxW - 7 - len(rssi)
		if room < 0 {
			room = 0
		}
		if len(detail) > room {
			detail = detail[:room]
		}
		if d.State == discovery.StateFailed {
			line3 += "  " + StyleError.Render(detail)
		} else {
			line3 += "  " + StyleHelp.Render(detail)
		}
	}

	return []string{
		fmt.Sprintf("%s %s %s", cursor, StyleDeviceName.Render(name), state.Render(tag)),
		"     " + StyleDeviceID.Render(id),
		line3,
		"",
	}
}

// truncRaw pads or truncates a raw string to exactly w characters.
func truncRaw(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	if len(s) < w {
		return s + strings.Repeat(" ", w-len(s))
	}
	return s
}

// clampLines forces rendered output to exactly height lines.
// lipgloss Height() only sets a minimum; it won't truncate overflow.
func clampLines(rendered string, height int) string {
	lines := strings.Split(rendered, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
