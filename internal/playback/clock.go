package playback

import (
	"sync"
	"time"
)

// LocalClock is a wall-time play-head used to rehearse a choreography
// without a browser player attached.
type LocalClock struct {
	mu       sync.Mutex
	duration time.Duration
	offset   time.Duration
	started  time.Time
	playing  bool
	now      func() time.Time
}

// NewLocalClock creates a paused clock at position zero.
func NewLocalClock(duration time.Duration) *LocalClock {
	return &LocalClock{duration: duration, now: time.Now}
}

// Play resumes advancing from the current position.
func (c *LocalClock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	if c.duration > 0 && c.offset >= c.duration {
		c.offset = 0
	}
	c.started = c.now()
	c.playing = true
}

// Pause freezes the position.
func (c *LocalClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = c.position()
	c.playing = false
}

// Toggle flips between playing and paused.
func (c *LocalClock) Toggle() {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()
	if playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// Seek moves the play-head, keeping the play/pause state.
func (c *LocalClock) Seek(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = c.clamp(pos)
	c.started = c.now()
}

// State reports the play-head. A clock that runs past its duration stops
// there and reports paused.
func (c *LocalClock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := c.position()
	if c.playing && c.duration > 0 && pos >= c.duration {
		c.offset = c.duration
		c.playing = false
	}
	return State{Position: pos, Duration: c.duration, Paused: !c.playing}
}

func (c *LocalClock) position() time.Duration {
	if !c.playing {
		return c.offset
	}
	return c.clamp(c.offset + c.now().Sub(c.started))
}

func (c *LocalClock) clamp(pos time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if c.duration > 0 && pos > c.duration {
		return c.duration
	}
	return pos
}
