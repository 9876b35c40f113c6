package api

import (
	"drone-dance.klederson.com/internal/discovery"
	"drone-dance.klederson.com/internal/motion"
)

// DeviceLister reports the drones ready to fly.
type DeviceLister interface {
	ListConnected(count int) []discovery.Summary
}

// MotionDispatcher sends one motion to one drone.
type MotionDispatcher interface {
	Dispatch(id, name string, p motion.Params) (motion.Status, error)
}
