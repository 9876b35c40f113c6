package timeline

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"drone-dance.klederson.com/internal/motion"
)

// NoFrame marks a timeline that has not observed a playing frame.
const NoFrame = -1

// Keyframe is one motion scheduled on the grid.
type Keyframe struct {
	Frame  int    `json:"frame"`
	Motion string `json:"name"`
	Speed  int    `json:"speed"`
	Steps  int    `json:"steps"`
}

// Params returns the move arguments of the keyframe.
func (k Keyframe) Params() motion.Params {
	return motion.Params{Speed: k.Speed, Steps: k.Steps}
}

// Patch changes selected fields of a keyframe. Nil fields are kept.
type Patch struct {
	Motion *string `json:"name,omitempty"`
	Speed  *int    `json:"speed,omitempty"`
	Steps  *int    `json:"steps,omitempty"`
}

// Timeline is the sparse keyframe track of one drone.
type Timeline struct {
	mu        sync.Mutex
	device    string
	frames    map[int]Keyframe
	lastFired int
	held      int // frame fired before the current pause
}

// New creates an empty timeline for device.
func New(device string) *Timeline {
	return &Timeline{
		device:    device,
		frames:    make(map[int]Keyframe),
		lastFired: NoFrame,
		held:      NoFrame,
	}
}

// Device returns the drone the timeline is bound to.
func (t *Timeline) Device() string {
	return t.device
}

func checkFrame(frame int) error {
	if frame < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrame, frame)
	}
	return nil
}

// Insert places a keyframe, replacing whatever occupied the frame.
func (t *Timeline) Insert(frame int, name string, speed, steps int) (Keyframe, error) {
	if err := checkFrame(frame); err != nil {
		return Keyframe{}, err
	}
	kf := Keyframe{Frame: frame, Motion: name, Speed: speed, Steps: steps}

	t.mu.Lock()
	t.frames[frame] = kf
	t.mu.Unlock()
	return kf, nil
}

// Remove deletes the keyframe at frame and reports whether one was there.
func (t *Timeline) Remove(frame int) (bool, error) {
	if err := checkFrame(frame); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.frames[frame]
	delete(t.frames, frame)
	return ok, nil
}

// Update applies p to the keyframe at frame.
func (t *Timeline) Update(frame int, p Patch) (Keyframe, bool, error) {
	if err := checkFrame(frame); err != nil {
		return Keyframe{}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	kf, ok := t.frames[frame]
	if !ok {
		return Keyframe{}, false, nil
	}
	if p.Motion != nil {
		kf.Motion = *p.Motion
	}
	if p.Speed != nil {
		kf.Speed = *p.Speed
	}
	if p.Steps != nil {
		kf.Steps = *p.Steps
	}
	t.frames[frame] = kf
	return kf, true, nil
}

// Move drags the keyframe at from onto to. An occupant of to is replaced.
func (t *Timeline) Move(from, to int) (Keyframe, bool, error) {
	if err := checkFrame(from); err != nil {
		return Keyframe{}, false, err
	}
	if err := checkFrame(to); err != nil {
		return Keyframe{}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	kf, ok := t.frames[from]
	if !ok {
		return Keyframe{}, false, nil
	}
	delete(t.frames, from)
	kf.Frame = to
	t.frames[to] = kf
	return kf, true, nil
}

// At returns the keyframe at frame.
func (t *Timeline) At(frame int) (Keyframe, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kf, ok := t.frames[frame]
	return kf, ok
}

// Keyframes lists the track in frame order.
func (t *Timeline) Keyframes() []Keyframe {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Keyframe, 0, len(t.frames))
	for _, kf := range t.frames {
		out = append(out, kf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Frame < out[j].Frame })
	return out
}

// Len returns the number of keyframes.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

// LastFired returns the frame seen by the previous playing tick, or NoFrame.
func (t *Timeline) LastFired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFired
}

// edge returns the edge-detection state.
func (t *Timeline) edge() (lastFired, held int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFired, t.held
}

// evaluate advances edge detection to frame and returns the keyframes
// crossed. catchUp is the largest forward skip whose intermediate frames
// still fire.
//
// A pause clears lastFired. The frame it interrupted is held so that
// resuming on it does not fire twice; the hold is dropped as soon as a
// paused tick reports a different frame.
func (t *Timeline) evaluate(frame int, paused bool, catchUp int) []Keyframe {
	t.mu.Lock()
	defer t.mu.Unlock()

	if paused {
		if t.lastFired != NoFrame {
			t.held = t.lastFired
		}
		if frame != t.held {
			t.held = NoFrame
		}
		t.lastFired = NoFrame
		return nil
	}

	if t.held != NoFrame {
		if frame == t.held {
			t.lastFired = frame
		}
		t.held = NoFrame
	}

	var fired []Keyframe
	if t.lastFired != NoFrame && (frame < t.lastFired || frame > t.lastFired+1) {
		skipped := frame - t.lastFired - 1
		if frame > t.lastFired && skipped <= catchUp {
			for f := t.lastFired + 1; f < frame; f++ {
				if kf, ok := t.frames[f]; ok {
					fired = append(fired, kf)
				}
			}
		} else {
			// seek: behave as if playback was paused and resumed here
			t.lastFired = NoFrame
		}
	}

	if frame != t.lastFired {
		if kf, ok := t.frames[frame]; ok {
			fired = append(fired, kf)
		}
	}
	t.lastFired = frame
	return fired
}

// DropFrame snaps a horizontal drop offset onto the grid, interval being
// the width of one frame.
func DropFrame(x, interval float64) (int, error) {
	if interval <= 0 || math.IsNaN(interval) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}
	f := math.Round(x / interval)
	if f < 0 || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: offset %v", ErrInvalidFrame, x)
	}
	return int(f), nil
}
