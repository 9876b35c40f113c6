package app

import "drone-dance.klederson.com/internal/ui"

// History is a circular buffer of dispatch events.
type History struct {
	buf   []ui.Event
	pos   int
	count int
	total int
}

// NewHistory creates a new circular buffer with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		buf: make([]ui.Event, capacity),
	}
}

// Push adds an event to the ring buffer.
func (r *History) Push(e ui.Event) {
	r.buf[r.pos] = e
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.total++
}

// Values returns all stored events in chronological order.
func (r *History) Values() []ui.Event {
	if r.count == 0 {
		return nil
	}
	result := make([]ui.Event, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Last returns the most recent event.
func (r *History) Last() (ui.Event, bool) {
	if r.count == 0 {
		return ui.Event{}, false
	}
	return r.buf[(r.pos-1+len(r.buf))%len(r.buf)], true
}

// Len returns the number of stored events.
func (r *History) Len() int {
	return r.count
}

// Total returns the number of events ever pushed.
func (r *History) Total() int {
	return r.total
}
