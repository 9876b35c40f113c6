package discovery

import (
	"sort"
	"sync"
	"time"

	"drone-dance.klederson.com/internal/bluetooth"
	"drone-dance.klederson.com/internal/drone"
)

// State is the connection lifecycle of a discovered drone.
type State int

const (
	StateDiscovered State = iota
	StateConnecting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "discovered"
	}
}

// Device is a drone known to the registry.
type Device struct {
	ID           string
	Name         string
	RSSI         int16
	State        State
	DiscoveredAt time.Time
	ReadyAt      time.Time
	Err          error

	order uint64
}

// Summary is the public view of a ready drone.
type Summary struct {
	ID   string `json:"uuid"`
	Name string `json:"name"`
}

type entry struct {
	dev    Device
	handle drone.Commander
}

// Registry is a thread-safe store of discovered drones keyed by peripheral
// identifier. Entries are never removed; a handle is attached exactly once
// when the device becomes ready.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	next    uint64
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Claim records a newly seen drone as discovered. It returns false if the
// identifier is already known in any state.
func (r *Registry) Claim(adv bluetooth.Advertisement) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[adv.ID]; ok {
		return existing.dev, false
	}

	r.next++
	dev := Device{
		ID:           adv.ID,
		Name:         adv.DisplayName(),
		RSSI:         adv.RSSI,
		State:        StateDiscovered,
		DiscoveredAt: time.Now(),
		order:        r.next,
	}
	r.entries[adv.ID] = &entry{dev: dev}
	return dev, true
}

// Transition moves a known device to state, recording err for failures.
// Ready is only reachable through Publish.
func (r *Registry) Transition(id string, state State, err error) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || state == StateReady || e.dev.State == StateReady {
		return Device{}, false
	}
	e.dev.State = state
	e.dev.Err = err
	return e.dev, true
}

// Publish attaches the command handle and marks the device ready in one
// step, so readers never see a ready device without a handle.
func (r *Registry) Publish(id string, handle drone.Commander) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.handle != nil {
		return Device{}, false
	}
	e.handle = handle
	e.dev.State = StateReady
	e.dev.ReadyAt = time.Now()
	e.dev.Err = nil
	return e.dev, true
}

// Lookup returns the handle of a ready drone.
func (r *Registry) Lookup(id string) (drone.Commander, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok || e.handle == nil {
		return nil, false
	}
	return e.handle, true
}

// Get returns a copy of one device.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return Device{}, false
	}
	return e.dev, true
}

// Ready returns the ready drones in discovery order.
func (r *Registry) Ready() []Summary {
	devs := r.Snapshot()

	out := make([]Summary, 0, len(devs))
	for _, d := range devs {
		if d.State == StateReady {
			out = append(out, Summary{ID: d.ID, Name: d.Name})
		}
	}
	return out
}

// Snapshot returns copies of all devices in discovery order.
func (r *Registry) Snapshot() []Device {
	r.mu.RLock()
	result := make([]Device, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.dev)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].order < result[j].order
	})
	return result
}

// Count returns the total number of tracked devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CountByState returns counts broken down by lifecycle state.
func (r *Registry) CountByState() map[State]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[State]int, 4)
	for _, e := range r.entries {
		counts[e.dev.State]++
	}
	return counts
}

// Handles returns every published handle; used at shutdown.
func (r *Registry) Handles() []drone.Commander {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []drone.Commander
	for _, e := range r.entries {
		if e.handle != nil {
			out = append(out, e.handle)
		}
	}
	return out
}
