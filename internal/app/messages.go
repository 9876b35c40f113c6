package app

import (
	"time"

	"drone-dance.klederson.com/internal/discovery"
	"drone-dance.klederson.com/internal/timeline"
)

// TickMsg triggers a redraw.
type TickMsg time.Time

// RehearseMsg advances the rehearsal clock into the scheduler.
type RehearseMsg time.Time

// DeviceMsg reports a drone lifecycle transition.
type DeviceMsg discovery.Device

// DispatchMsg reports the outcome of a scheduled keyframe.
type DispatchMsg timeline.Result

// ManualMsg reports the outcome of a command sent from the console.
type ManualMsg struct {
	Device string
	Motion string
	Status string
	Err    error
}
