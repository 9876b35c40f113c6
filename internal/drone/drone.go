package drone

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"drone-dance.klederson.com/internal/bluetooth"
	"drone-dance.klederson.com/internal/config"
	"github.com/rs/zerolog"
)

var (
	ErrNotReady = errors.New("drone setup has not completed")
	ErrClosed   = errors.New("drone link closed")
)

// Move parameterizes a translation or rotation. Zero fields take the
// package defaults.
type Move struct {
	Speed int
	Steps int
}

func (m Move) normalize() (speed int8, steps int) {
	s := m.Speed
	if s == 0 {
		s = config.DefaultSpeed
	}
	if s < 0 {
		s = -s
	}
	if s > config.MaxSpeed {
		s = config.MaxSpeed
	}

	steps = m.Steps
	if steps <= 0 {
		steps = config.DefaultSteps
	}
	return int8(s), steps
}

// Commander is the motion surface of a ready drone.
type Commander interface {
	TakeOff() error
	Land() error
	FrontFlip() error
	BackFlip() error
	Up(Move) error
	Down(Move) error
	Forward(Move) error
	Backward(Move) error
	Left(Move) error
	Right(Move) error
	TurnLeft(Move) error
	TurnRight(Move) error
}

// Peripheral is a drone that still has to be brought up.
type Peripheral interface {
	Connect(ctx context.Context) error
	Setup(ctx context.Context) error
	Commander
}

// Drone speaks the MiniDrone protocol over a GATT link.
type Drone struct {
	link     bluetooth.Link
	log      zerolog.Logger
	interval time.Duration
	seq      sequencer

	mu        sync.Mutex
	ready     bool
	closed    bool
	pilot     Pilot
	stepsLeft int
	stop      chan struct{}
}

// Option configures a Drone.
type Option func(*Drone)

// WithPilotInterval sets the piloting resend period. Zero disables the
// background loop; callers then drive PilotStep themselves.
func WithPilotInterval(d time.Duration) Option {
	return func(dr *Drone) { dr.interval = d }
}

// WithLogger sets the drone logger.
func WithLogger(log zerolog.Logger) Option {
	return func(dr *Drone) { dr.log = log }
}

// New wraps an unconnected link.
func New(link bluetooth.Link, opts ...Option) *Drone {
	d := &Drone{
		link:     link,
		log:      zerolog.Nop(),
		interval: config.PilotInterval,
		stop:     make(chan struct{}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Connect opens the link.
func (d *Drone) Connect(ctx context.Context) error {
	return d.link.Connect(ctx)
}

// Setup subscribes to the firmware notifications, flat-trims the drone
// and starts the piloting loop. Flat trim only resets the attitude
// reference, so running it on every bring-up is safe.
func (d *Drone) Setup(ctx context.Context) error {
	if err := d.link.Subscribe(ctx, NotifyChars, d.onNotify); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if err := d.send(CharCommand, func(seq byte) []byte {
		return commandPacket(seq, classPiloting, cmdFlatTrim)
	}); err != nil {
		return fmt.Errorf("flat trim: %w", err)
	}

	d.mu.Lock()
	d.ready = true
	d.mu.Unlock()

	if d.interval > 0 {
		go d.pilotLoop()
	}
	return nil
}

func (d *Drone) onNotify(char string, data []byte) {
	d.log.Trace().Str("char", char).Hex("data", data).Msg("notification")
}

func (d *Drone) send(char string, build func(seq byte) []byte) error {
	return d.link.Write(char, build(d.seq.next(char)))
}

func (d *Drone) command(class, cmd byte) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.send(CharCommand, func(seq byte) []byte {
		return commandPacket(seq, class, cmd)
	})
}

func (d *Drone) checkReady() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if !d.ready {
		return ErrNotReady
	}
	return nil
}

func (d *Drone) TakeOff() error { return d.command(classPiloting, cmdTakeOff) }
func (d *Drone) Land() error    { return d.command(classPiloting, cmdLanding) }

// Emergency cuts the motors.
func (d *Drone) Emergency() error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.send(CharEmergency, func(seq byte) []byte {
		return commandPacket(seq, classPiloting, cmdEmergency)
	})
}

func (d *Drone) FrontFlip() error { return d.flip(FlipFront) }
func (d *Drone) BackFlip() error  { return d.flip(FlipBack) }

func (d *Drone) flip(dir Flip) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.send(CharCommand, func(seq byte) []byte {
		return flipPacket(seq, dir)
	})
}

func (d *Drone) Up(m Move) error {
	s, n := m.normalize()
	return d.drive(Pilot{Gaz: s}, n)
}

func (d *Drone) Down(m Move) error {
	s, n := m.normalize()
	return d.drive(Pilot{Gaz: -s}, n)
}

func (d *Drone) Forward(m Move) error {
	s, n := m.normalize()
	return d.drive(Pilot{Pitch: s}, n)
}

func (d *Drone) Backward(m Move) error {
	s, n := m.normalize()
	return d.drive(Pilot{Pitch: -s}, n)
}

func (d *Drone) Left(m Move) error {
	s, n := m.normalize()
	return d.drive(Pilot{Roll: -s}, n)
}

func (d *Drone) Right(m Move) error {
	s, n := m.normalize()
	return d.drive(Pilot{Roll: s}, n)
}

func (d *Drone) TurnLeft(m Move) error {
	s, n := m.normalize()
	return d.drive(Pilot{Yaw: -s}, n)
}

func (d *Drone) TurnRight(m Move) error {
	s, n := m.normalize()
	return d.drive(Pilot{Yaw: s}, n)
}

// drive replaces the active setpoint; the piloting loop sends it for the
// next steps ticks and then returns to hover.
func (d *Drone) drive(p Pilot, steps int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if !d.ready {
		return ErrNotReady
	}
	d.pilot = p
	d.stepsLeft = steps
	return nil
}

// Setpoint returns the active setpoint and remaining steps.
func (d *Drone) Setpoint() (Pilot, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pilot, d.stepsLeft
}

// PilotStep sends one piloting frame and consumes one step.
func (d *Drone) PilotStep() error {
	d.mu.Lock()
	p := d.pilot
	if d.stepsLeft > 0 {
		d.stepsLeft--
		if d.stepsLeft == 0 {
			d.pilot = Pilot{}
		}
	}
	d.mu.Unlock()

	return d.send(CharPiloting, func(seq byte) []byte {
		return pcmdPacket(seq, p)
	})
}

func (d *Drone) pilotLoop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if err := d.PilotStep(); err != nil {
				d.log.Debug().Err(err).Msg("piloting frame dropped")
			}
		}
	}
}

// Close stops the piloting loop and drops the link.
func (d *Drone) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.stop)
	d.mu.Unlock()

	return d.link.Close()
}
