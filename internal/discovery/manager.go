package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"drone-dance.klederson.com/internal/bluetooth"
	"drone-dance.klederson.com/internal/config"
	"drone-dance.klederson.com/internal/drone"
	"github.com/rs/zerolog"
)

// Dialer builds an unconnected drone for an accepted advertisement.
type Dialer func(adv bluetooth.Advertisement) (drone.Peripheral, error)

// Manager turns radio advertisements into ready drones. Each identifier
// goes through connect and setup at most once; re-advertisements and
// failed devices are never retried.
type Manager struct {
	radio    bluetooth.Radio
	registry *Registry
	dial     Dialer
	accept   func(bluetooth.Advertisement) bool
	timeout  time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	scanning bool
	stopped  bool
	onChange func(Device)

	inflight sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the radio-backed dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithConnectTimeout bounds connect plus setup per device. Zero means
// no bound.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithLogger sets the manager logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithStateHook registers fn to receive every lifecycle transition.
func WithStateHook(fn func(Device)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// NewManager creates a manager publishing into registry.
func NewManager(radio bluetooth.Radio, registry *Registry, opts ...Option) *Manager {
	m := &Manager{
		radio:    radio,
		registry: registry,
		accept:   drone.IsDrone,
		timeout:  config.ConnectTimeout,
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(m)
	}
	if m.dial == nil {
		m.dial = m.radioDialer
	}
	return m
}

func (m *Manager) radioDialer(adv bluetooth.Advertisement) (drone.Peripheral, error) {
	link, err := m.radio.Dial(adv.ID)
	if err != nil {
		return nil, err
	}
	return drone.New(link, drone.WithLogger(m.log.With().Str("drone", adv.ID).Logger())), nil
}

// Start subscribes to the radio and powers it on. Scanning begins when
// the radio reports poweredOn.
func (m *Manager) Start() error {
	m.radio.OnStateChange(m.HandleRadioState)
	m.radio.OnAdvertisement(m.RegisterAdvertisement)
	return m.radio.Enable()
}

// HandleRadioState starts a scan on the first poweredOn report.
func (m *Manager) HandleRadioState(s bluetooth.RadioState) {
	if s != bluetooth.StatePoweredOn {
		return
	}

	m.mu.Lock()
	if m.scanning {
		m.mu.Unlock()
		return
	}
	m.scanning = true
	m.mu.Unlock()

	if err := m.radio.StartScan(); err != nil {
		m.log.Error().Err(err).Msg("failed to start scan")

		m.mu.Lock()
		m.scanning = false
		m.mu.Unlock()
		return
	}
	m.log.Info().Msg("scanning for drones")
}

// Scanning reports whether a scan has been started.
func (m *Manager) Scanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanning
}

// RegisterAdvertisement handles one advertisement. It never blocks: the
// connect sequence of a new drone runs in its own goroutine.
func (m *Manager) RegisterAdvertisement(adv bluetooth.Advertisement) {
	if !m.accept(adv) {
		return
	}

	// late callbacks from the radio may still arrive while Stop waits
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.inflight.Add(1)
	m.mu.Unlock()

	dev, ok := m.registry.Claim(adv)
	if !ok {
		m.inflight.Done()
		return
	}

	m.log.Info().Str("drone", dev.ID).Str("name", dev.Name).Int16("rssi", dev.RSSI).Msg("drone discovered")
	m.notify(dev)

	go m.bringUp(adv)
}

func (m *Manager) bringUp(adv bluetooth.Advertisement) {
	defer m.inflight.Done()

	if dev, ok := m.registry.Transition(adv.ID, StateConnecting, nil); ok {
		m.notify(dev)
	}

	ctx := context.Background()
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	p, err := m.dial(adv)
	if err != nil {
		m.fail(adv.ID, fmt.Errorf("%w: %w", ErrDial, err))
		return
	}

	if err := p.Connect(ctx); err != nil {
		closeQuietly(p)
		m.fail(adv.ID, stageError(ErrConnect, err))
		return
	}

	if err := p.Setup(ctx); err != nil {
		closeQuietly(p)
		m.fail(adv.ID, stageError(ErrSetup, err))
		return
	}

	dev, ok := m.registry.Publish(adv.ID, p)
	if !ok {
		closeQuietly(p)
		return
	}

	m.log.Info().Str("drone", dev.ID).Str("name", dev.Name).
		Dur("elapsed", dev.ReadyAt.Sub(dev.DiscoveredAt)).Msg("drone ready")
	m.notify(dev)
}

func stageError(stage, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", ErrConnectTimeout, stage, err)
	}
	return fmt.Errorf("%w: %w", stage, err)
}

func closeQuietly(p drone.Peripheral) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}

func (m *Manager) fail(id string, err error) {
	m.log.Warn().Str("drone", id).Err(err).Msg("drone unavailable")

	if dev, ok := m.registry.Transition(id, StateFailed, err); ok {
		m.notify(dev)
	}
}

func (m *Manager) notify(dev Device) {
	if m.onChange != nil {
		m.onChange(dev)
	}
}

// Lookup returns the command handle of a ready drone.
func (m *Manager) Lookup(id string) (drone.Commander, bool) {
	return m.registry.Lookup(id)
}

// ListConnected returns the ready drones. A positive count instead
// returns that many placeholder entries and leaves the registry alone.
func (m *Manager) ListConnected(count int) []Summary {
	if count > 0 {
		out := make([]Summary, count)
		for i := range out {
			out[i] = Summary{
				ID:   fmt.Sprintf("uuid-%02d", i),
				Name: fmt.Sprintf("name-%02d", i),
			}
		}
		return out
	}
	return m.registry.Ready()
}

// Devices returns every known drone in discovery order.
func (m *Manager) Devices() []Device {
	return m.registry.Snapshot()
}

// Wait blocks until every in-flight connect sequence has finished.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Stop halts the scan, waits for pending bring-ups and closes every
// ready drone. Advertisements arriving after Stop are ignored.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.radio.Stop()
	m.inflight.Wait()

	for _, h := range m.registry.Handles() {
		if c, ok := h.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
