package ui

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"drone-dance.klederson.com/internal/motion"
	"drone-dance.klederson.com/internal/timeline"
)

const maxLabelLen = 10

// Track is one drone row of the grid.
type Track struct {
	ID        string
	Name      string
	Keyframes []timeline.Keyframe
}

var glyphs = map[motion.Name]byte{
	motion.TakeOff:   'T',
	motion.Land:      'L',
	motion.Up:        '^',
	motion.Down:      'v',
	motion.Forward:   'F',
	motion.Backward:  'B',
	motion.Left:      '<',
	motion.Right:     '>',
	motion.TurnLeft:  '(',
	motion.TurnRight: ')',
	motion.FrontFlip: '@',
	motion.BackFlip:  '&',
}

// Glyph returns the one-cell symbol drawn for a motion.
func Glyph(name string) byte {
	if g, ok := glyphs[motion.Name(name)]; ok {
		return g
	}
	return '?'
}

// RenderTimelinePanel draws every track as a row of keyframe cells, with
// the window scrolled so the play-head column stays visible.
func RenderTimelinePanel(width, height int, tracks []Track, frame, fps int) string {
	innerW := width - 4
	innerH := height - 2
	if innerW < 20 {
		innerW = 20
	}
	if innerH < 3 {
		innerH = 3
	}

	labelW := maxLabelLen + 1
	cols := innerW - labelW
	if cols < 5 {
		cols = 5
	}
	start := 0
	if frame >= cols {
		start = frame - cols/2
	}

	lines := []string{
		StylePanelTitle.Render(fmt.Sprintf("TIMELINE  %d fps", fps)),
		strings.Repeat(" ", labelW) + renderRuler(start, cols, frame, fps),
	}

	if len(tracks) == 0 {
		lines = append(lines, "", StyleHelp.Render(" No keyframes yet. Drop motions on the grid."))
	}
	for _, t := range tracks {
		if len(lines) >= innerH {
			break
		}
		label := t.Name
		if label == "" {
			label = callsign(t.ID)
		}
		if len(label) > maxLabelLen {
			label = label[:maxLabelLen]
		}
		lines = append(lines, StyleDeviceName.Render(fmt.Sprintf("%-*s", labelW, label))+renderTrack(t.Keyframes, start, cols, frame))
	}

	for len(lines) < innerH {
		lines = append(lines, "")
	}
	if len(lines) > innerH {
		lines = lines[:innerH]
	}

	rendered := PanelStyle(onBeat(tracks, frame)).Width(width - 2).Height(innerH).Render(strings.Join(lines, "\n"))
	return clampLines(rendered, height)
}

// onBeat reports whether any track has a keyframe under the play-head.
func onBeat(tracks []Track, frame int) bool {
	for _, t := range tracks {
		for _, kf := range t.Keyframes {
			if kf.Frame == frame {
				return true
			}
		}
	}
	return false
}

// renderRuler marks every second of track time.
func renderRuler(start, cols, frame, fps int) string {
	var sb strings.Builder
	for c := 0; c < cols; c++ {
		f := start + c
		ch := "."
		if fps > 0 && f%fps == 0 {
			ch = "|"
		}
		if f == frame {
			sb.WriteString(StylePlayhead.Render(ch))
			continue
		}
		if ch == "|" {
			sb.WriteString(StyleGridRule.Render(ch))
		} else {
			sb.WriteString(StyleGridDot.Render(ch))
		}
	}
	return sb.String()
}

func renderTrack(kfs []timeline.Keyframe, start, cols, frame int) string {
	byFrame := make(map[int]timeline.Keyframe, len(kfs))
	for _, kf := range kfs {
		byFrame[kf.Frame] = kf
	}

	var sb strings.Builder
	for c := 0; c < cols; c++ {
		f := start + c
		kf, ok := byFrame[f]
		switch {
		case ok && f == frame:
			sb.WriteString(StylePlayhead.Render(string(Glyph(kf.Motion))))
		case ok:
			sb.WriteString(StyleGridKeyframe.Render(string(Glyph(kf.Motion))))
		case f == frame:
			sb.WriteString(StylePlayhead.Render(" "))
		default:
			sb.WriteString(StyleGridDot.Render("."))
		}
	}
	return sb.String()
}

// callsign labels an unnamed drone with a short hash of its identifier.
func callsign(id string) string {
	h := sha256.Sum256([]byte(id))
	return fmt.Sprintf("#%02X%X", h[0], h[1]&0x0F)
}
