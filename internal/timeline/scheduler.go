package timeline

import (
	"sort"
	"sync"

	"drone-dance.klederson.com/internal/config"
	"drone-dance.klederson.com/internal/motion"
	"drone-dance.klederson.com/internal/playback"
	"github.com/rs/zerolog"
)

// Dispatcher delivers one motion to one drone.
type Dispatcher interface {
	Dispatch(id, name string, p motion.Params) (motion.Status, error)
}

// Fired is a keyframe crossed by the play-head on a given tick.
type Fired struct {
	Device   string   `json:"uuid"`
	Keyframe Keyframe `json:"keyframe"`
}

// Result is the outcome of dispatching a fired keyframe.
type Result struct {
	Fired
	Status motion.Status
	Err    error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCatchUp fires keyframes skipped by a forward jump of at most n frames.
func WithCatchUp(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.catchUp = n
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithResultHook observes every dispatch outcome.
func WithResultHook(fn func(Result)) Option {
	return func(s *Scheduler) { s.onResult = fn }
}

// WithErrorHook observes dispatches that were not delivered.
func WithErrorHook(fn func(*TickError)) Option {
	return func(s *Scheduler) { s.onError = fn }
}

// Scheduler owns every drone timeline and turns play-head updates into
// motion dispatches.
type Scheduler struct {
	mu        sync.RWMutex
	timelines map[string]*Timeline

	tickMu sync.Mutex
	last   playback.State
	ticks  uint64
	cursor *Timeline // empty track following every tick; seeds new tracks

	lanesMu sync.Mutex
	lanes   map[string]*lane

	dispatcher Dispatcher
	fps        int
	catchUp    int
	log        zerolog.Logger
	onResult   func(Result)
	onError    func(*TickError)
	wg         sync.WaitGroup
}

// NewScheduler creates a scheduler quantizing at fps frames per second.
func NewScheduler(d Dispatcher, fps int, opts ...Option) *Scheduler {
	if fps <= 0 {
		fps = config.FrameRate
	}
	s := &Scheduler{
		timelines:  make(map[string]*Timeline),
		dispatcher: d,
		fps:        fps,
		catchUp:    config.CatchUpFrames,
		log:        zerolog.Nop(),
		last:       playback.State{Paused: true},
		cursor:     New(""),
		lanes:      make(map[string]*lane),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FrameRate returns the grid resolution in frames per second.
func (s *Scheduler) FrameRate() int {
	return s.fps
}

// Timeline returns the track of device, creating it on first use. A new
// track starts from the edge state of the ticks already seen, so a
// keyframe placed on the playing frame waits for the next crossing.
func (s *Scheduler) Timeline(device string) *Timeline {
	s.mu.RLock()
	t, ok := s.timelines[device]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timelines[device]; ok {
		return t
	}
	t = New(device)
	t.lastFired, t.held = s.cursor.edge()
	s.timelines[device] = t
	return t
}

// Lookup returns an existing track.
func (s *Scheduler) Lookup(device string) (*Timeline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timelines[device]
	return t, ok
}

// Devices lists the drones that have a track, sorted.
func (s *Scheduler) Devices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.timelines))
	for id := range s.timelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Last returns the most recent play-head state and the number of ticks seen.
func (s *Scheduler) Last() (playback.State, uint64) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.last, s.ticks
}

// Tick evaluates every timeline against st and dispatches what fired.
// Each drone has its own dispatch lane, so keyframes reach a drone in
// frame order across ticks while a slow drone never holds up the others.
// Tick does not wait for delivery.
func (s *Scheduler) Tick(st playback.State) []Fired {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.last = st
	s.ticks++

	frame := st.Frame(s.fps)
	s.cursor.evaluate(frame, st.Paused, s.catchUp)

	var fired []Fired
	for _, id := range s.Devices() {
		t, _ := s.Lookup(id)
		kfs := t.evaluate(frame, st.Paused, s.catchUp)
		if len(kfs) == 0 {
			continue
		}
		for _, kf := range kfs {
			fired = append(fired, Fired{Device: id, Keyframe: kf})
		}

		s.enqueue(id, kfs)
	}
	return fired
}

// lane serializes the dispatches of one drone. A worker goroutine runs
// only while batches are pending.
type lane struct {
	pending [][]Keyframe
	running bool
}

func (s *Scheduler) enqueue(id string, kfs []Keyframe) {
	s.wg.Add(1)

	s.lanesMu.Lock()
	defer s.lanesMu.Unlock()
	l, ok := s.lanes[id]
	if !ok {
		l = &lane{}
		s.lanes[id] = l
	}
	l.pending = append(l.pending, kfs)
	if !l.running {
		l.running = true
		go s.drain(id, l)
	}
}

func (s *Scheduler) drain(id string, l *lane) {
	for {
		s.lanesMu.Lock()
		if len(l.pending) == 0 {
			l.running = false
			s.lanesMu.Unlock()
			return
		}
		kfs := l.pending[0]
		l.pending = l.pending[1:]
		s.lanesMu.Unlock()

		for _, kf := range kfs {
			s.dispatch(id, kf)
		}
		s.wg.Done()
	}
}

func (s *Scheduler) dispatch(id string, kf Keyframe) {
	status, err := s.dispatcher.Dispatch(id, kf.Motion, kf.Params())
	res := Result{Fired: Fired{Device: id, Keyframe: kf}, Status: status, Err: err}

	switch {
	case err != nil:
		terr := &TickError{Device: id, Keyframe: kf, Err: err}
		s.log.Warn().Err(err).Str("drone", id).Int("frame", kf.Frame).
			Str("motion", kf.Motion).Msg("keyframe not delivered")
		if s.onError != nil {
			s.onError(terr)
		}
	case status == motion.StatusNotReady:
		s.log.Debug().Str("drone", id).Int("frame", kf.Frame).Msg("keyframe skipped, drone not ready")
	default:
		s.log.Debug().Str("drone", id).Int("frame", kf.Frame).Str("motion", kf.Motion).Msg("keyframe fired")
	}

	if s.onResult != nil {
		s.onResult(res)
	}
}

// Wait blocks until every dispatch started by earlier ticks has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
