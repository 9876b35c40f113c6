package bluetooth

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var simDroneNames = []string{
	"RS_R034512", "RS_B119284", "Mars_077321", "Travis_102938", "Mambo_614233", "Swat_008812",
}

var simNoiseTemplates = []struct {
	Name      string
	CompanyID uint16
}{
	{"iPhone 15 Pro", 0x004C},
	{"Galaxy S24 Ultra", 0x0075},
	{"AirPods Pro", 0x004C},
	{"Fitbit Charge 6", 0x03DA},
	{"JBL Flip 6", 0x0131},
	{"Tile Tracker", 0x02FF},
	{"", 0x0006},
}

// Parrot MiniDrone manufacturer signature.
var simDroneSignature = []byte{0xcf, 0x19, 0x00, 0x09, 0x01, 0x00}

type simPeripheral struct {
	id        string
	name      string
	mfr       []ManufacturerData
	baseRSSI  float64
	phase     float64
	amplitude float64
	active    bool
}

// SimRadio advertises fake drones and bystander peripherals for demo mode.
// Every peripheral is re-advertised on each period, as a real scan does.
type SimRadio struct {
	log        zerolog.Logger
	interval   time.Duration
	connectLag time.Duration

	mu          sync.Mutex
	peripherals []simPeripheral
	links       map[string]*SimLink
	onState     func(RadioState)
	onAdv       func(Advertisement)
	cancel      context.CancelFunc
}

// NewSimRadio creates a radio with the given number of drones and
// non-drone peripherals.
func NewSimRadio(drones, noise int, interval, connectLag time.Duration, log zerolog.Logger) *SimRadio {
	var ps []simPeripheral

	for i, n := range rand.Perm(len(simDroneNames)) {
		if i >= drones {
			break
		}
		ps = append(ps, newSimPeripheral(simDroneNames[n], ManufacturerData{
			CompanyID: CompanyParrot,
			Data:      simDroneSignature,
		}))
	}
	for i, n := range rand.Perm(len(simNoiseTemplates)) {
		if i >= noise {
			break
		}
		t := simNoiseTemplates[n]
		ps = append(ps, newSimPeripheral(t.Name, ManufacturerData{
			CompanyID: t.CompanyID,
			Data:      []byte{0x02, 0x15},
		}))
	}

	return &SimRadio{
		log:         log,
		interval:    interval,
		connectLag:  connectLag,
		peripherals: ps,
		links:       make(map[string]*SimLink),
	}
}

func newSimPeripheral(name string, mfr ManufacturerData) simPeripheral {
	return simPeripheral{
		id:        uuid.NewString(),
		name:      name,
		mfr:       []ManufacturerData{mfr},
		baseRSSI:  -40 - rand.Float64()*40, // -40 to -80 dBm
		phase:     rand.Float64() * 2 * math.Pi,
		amplitude: 2 + rand.Float64()*6,
		active:    true,
	}
}

func (r *SimRadio) OnStateChange(fn func(RadioState)) {
	r.mu.Lock()
	r.onState = fn
	r.mu.Unlock()
}

func (r *SimRadio) OnAdvertisement(fn func(Advertisement)) {
	r.mu.Lock()
	r.onAdv = fn
	r.mu.Unlock()
}

// Enable reports poweredOn immediately.
func (r *SimRadio) Enable() error {
	r.mu.Lock()
	fn := r.onState
	r.mu.Unlock()

	if fn != nil {
		fn(StatePoweredOn)
	}
	return nil
}

// StartScan begins the advertisement loop. Repeated calls are no-ops.
func (r *SimRadio) StartScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go r.loop(ctx)
	return nil
}

func (r *SimRadio) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	t := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t += r.interval.Seconds()
			r.emit(t)
		}
	}
}

func (r *SimRadio) emit(t float64) {
	r.mu.Lock()
	fn := r.onAdv
	advs := make([]Advertisement, 0, len(r.peripherals))
	for i := range r.peripherals {
		p := &r.peripherals[i]

		// Bystanders drift in and out of range
		if len(p.mfr) > 0 && p.mfr[0].CompanyID != CompanyParrot && rand.Float64() < 0.01 {
			p.active = !p.active
		}
		if !p.active {
			continue
		}

		rssi := p.baseRSSI + p.amplitude*math.Sin(t*0.5+p.phase) + (rand.Float64()-0.5)*4
		advs = append(advs, Advertisement{
			ID:           p.id,
			LocalName:    p.name,
			RSSI:         int16(rssi),
			Manufacturer: p.mfr,
		})
	}
	r.mu.Unlock()

	if fn == nil {
		return
	}
	for _, adv := range advs {
		fn(adv)
	}
}

// Dial returns a simulated link; one link per peripheral is kept so the
// console can inspect what was written.
func (r *SimRadio) Dial(id string) (Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	known := false
	for _, p := range r.peripherals {
		if p.id == id {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeripheral, id)
	}

	if l, ok := r.links[id]; ok {
		return l, nil
	}
	l := NewSimLink(r.connectLag, r.log.With().Str("peripheral", id).Logger())
	r.links[id] = l
	return l, nil
}

// Stop halts the advertisement loop.
func (r *SimRadio) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Packets kept per characteristic.
const simWriteHistory = 256

// SimLink is an in-memory Link that records recent writes.
type SimLink struct {
	lag time.Duration
	log zerolog.Logger

	mu         sync.Mutex
	connected  bool
	subscribed []string
	writes     map[string][][]byte
}

// NewSimLink creates a link whose Connect takes lag to complete.
func NewSimLink(lag time.Duration, log zerolog.Logger) *SimLink {
	return &SimLink{
		lag:    lag,
		log:    log,
		writes: make(map[string][][]byte),
	}
}

func (l *SimLink) Connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.lag):
	}

	l.mu.Lock()
	l.connected = true
	l.mu.Unlock()
	return nil
}

func (l *SimLink) Subscribe(ctx context.Context, chars []string, _ func(string, []byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return ErrNotConnected
	}
	l.subscribed = append(l.subscribed, chars...)
	return nil
}

func (l *SimLink) Write(char string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return ErrNotConnected
	}

	buf := append([]byte(nil), data...)
	w := append(l.writes[char], buf)
	if len(w) > simWriteHistory {
		w = w[len(w)-simWriteHistory:]
	}
	l.writes[char] = w
	l.log.Trace().Str("char", char).Hex("data", buf).Msg("write")
	return nil
}

func (l *SimLink) Close() error {
	l.mu.Lock()
	l.connected = false
	l.mu.Unlock()
	return nil
}

// Writes returns a copy of the recent packets written to char, oldest first.
func (l *SimLink) Writes(char string) [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([][]byte, len(l.writes[char]))
	copy(out, l.writes[char])
	return out
}

// Subscribed returns the characteristics notifications were enabled on.
func (l *SimLink) Subscribed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.subscribed...)
}
