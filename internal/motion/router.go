package motion

import (
	"errors"
	"fmt"

	"drone-dance.klederson.com/internal/drone"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownMotion = errors.New("unknown motion")
	ErrCommandFailed = errors.New("motion command not delivered")
)

// Status is the outcome of a dispatch.
type Status int

const (
	StatusSent Status = iota
	StatusNotReady
	StatusRejected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusNotReady:
		return "not_ready"
	case StatusRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Lookup finds the command surface of a ready drone.
type Lookup interface {
	Lookup(id string) (drone.Commander, bool)
}

// Router sends motion requests to ready drones.
type Router struct {
	devices Lookup
	log     zerolog.Logger
}

// NewRouter creates a router over devices.
func NewRouter(devices Lookup, log zerolog.Logger) *Router {
	return &Router{devices: devices, log: log}
}

// Dispatch sends one motion to a drone. An unknown motion is a caller
// error and is reported before the device is consulted. An unknown or
// not yet ready drone yields StatusNotReady with a nil error.
func (r *Router) Dispatch(id, name string, p Params) (Status, error) {
	n, err := Parse(name)
	if err != nil {
		r.log.Warn().Str("drone", id).Str("motion", name).Msg("unknown motion rejected")
		return StatusRejected, err
	}

	c, ok := r.devices.Lookup(id)
	if !ok {
		r.log.Debug().Str("drone", id).Str("motion", name).Msg("drone not ready")
		return StatusNotReady, nil
	}

	if err := n.Apply(c, p); err != nil {
		return StatusFailed, fmt.Errorf("%w: %s to %s: %w", ErrCommandFailed, n, id, err)
	}

	r.log.Info().Str("drone", id).Str("motion", string(n)).
		Int("speed", p.Speed).Int("steps", p.Steps).Msg("motion sent")
	return StatusSent, nil
}
