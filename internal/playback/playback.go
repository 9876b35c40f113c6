package playback

import (
	"math"
	"time"
)

// State is one observation of the play-head.
type State struct {
	Position time.Duration
	Duration time.Duration
	Paused   bool
}

// Frame quantizes a play-head position onto the keyframe grid.
func Frame(position time.Duration, fps int) int {
	if position < 0 || fps <= 0 {
		return 0
	}
	return int(math.Floor(position.Seconds() * float64(fps)))
}

// Frame returns the keyframe slot under the play-head.
func (s State) Frame(fps int) int {
	return Frame(s.Position, fps)
}

// FromSeconds builds a State from the float seconds used by browser players.
func FromSeconds(current, total float64, paused bool) State {
	return State{
		Position: seconds(current),
		Duration: seconds(total),
		Paused:   paused,
	}
}

func seconds(s float64) time.Duration {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
