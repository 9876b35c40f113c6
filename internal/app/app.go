package app

import (
	"sync/atomic"
	"time"

	"drone-dance.klederson.com/internal/config"
	"drone-dance.klederson.com/internal/discovery"
	"drone-dance.klederson.com/internal/motion"
	"drone-dance.klederson.com/internal/playback"
	"drone-dance.klederson.com/internal/timeline"
	"drone-dance.klederson.com/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

// Fleet lists every drone the discovery manager knows about.
type Fleet interface {
	Devices() []discovery.Device
}

// Dispatcher sends manual commands from the console.
type Dispatcher interface {
	Dispatch(id, name string, p motion.Params) (motion.Status, error)
}

// Config wires the console to the running core.
type Config struct {
	Adapter    string
	Fleet      Fleet
	Dispatcher Dispatcher
	Scheduler  *timeline.Scheduler
	// Clock drives the scheduler from the console. Nil leaves playback to
	// the browser player.
	Clock *playback.LocalClock
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	cfg     Config
	history *History
}

// AppModel is the root Bubble Tea model of the operator console.
type AppModel struct {
	width  int
	height int
	cursor int

	shared *shared

	// Cached snapshot
	devices []discovery.Device
	tracks  []ui.Track
	state   playback.State
	frame   int
}

// New creates a new AppModel.
func New(cfg Config) AppModel {
	return AppModel{
		shared: &shared{
			cfg:     cfg,
			history: NewHistory(config.HistorySize),
		},
		state: playback.State{Paused: true},
	}
}

func (m AppModel) rehearsing() bool {
	return m.shared.cfg.Clock != nil
}

func (m AppModel) Init() tea.Cmd {
	if m.rehearsing() {
		return tea.Batch(tickCmd(), rehearseCmd())
	}
	return tickCmd()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case RehearseMsg:
		if m.rehearsing() {
			m.shared.cfg.Scheduler.Tick(m.shared.cfg.Clock.State())
		}
		return m, rehearseCmd()

	case DeviceMsg:
		m.refresh()
		return m, nil

	case DispatchMsg:
		ev := ui.Event{
			At:     time.Now(),
			Device: msg.Device,
			Motion: msg.Keyframe.Motion,
			Frame:  msg.Keyframe.Frame,
			Status: msg.Status.String(),
		}
		if msg.Err != nil {
			ev.Err = msg.Err.Error()
		}
		m.shared.history.Push(ev)
		return m, nil

	case ManualMsg:
		ev := ui.Event{At: time.Now(), Device: msg.Device, Motion: msg.Motion, Frame: -1, Status: msg.Status}
		if msg.Err != nil {
			ev.Err = msg.Err.Error()
		}
		m.shared.history.Push(ev)
		return m, nil
	}

	return m, nil
}

func (m *AppModel) refresh() {
	cfg := m.shared.cfg
	if cfg.Fleet != nil {
		m.devices = cfg.Fleet.Devices()
	}
	if m.cursor >= len(m.devices) {
		m.cursor = max(0, len(m.devices)-1)
	}
	if cfg.Scheduler == nil {
		return
	}

	names := make(map[string]string, len(m.devices))
	for _, d := range m.devices {
		names[d.ID] = d.Name
	}
	m.tracks = make([]ui.Track, 0, len(names))
	for _, id := range cfg.Scheduler.Devices() {
		t, ok := cfg.Scheduler.Lookup(id)
		if !ok {
			continue
		}
		m.tracks = append(m.tracks, ui.Track{ID: id, Name: names[id], Keyframes: t.Keyframes()})
	}

	if cfg.Clock != nil {
		m.state = cfg.Clock.State()
	} else {
		m.state, _ = cfg.Scheduler.Last()
	}
	m.frame = m.state.Frame(cfg.Scheduler.FrameRate())
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	clock := m.shared.cfg.Clock

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case " ", "space":
		if clock != nil {
			clock.Toggle()
		}

	case "left", "h":
		if clock != nil {
			clock.Seek(clock.State().Position - time.Second)
		}

	case "right", "l":
		if clock != nil {
			clock.Seek(clock.State().Position + time.Second)
		}

	case "r", "R":
		if clock != nil {
			clock.Seek(0)
		}

	case "t", "T":
		return m, m.manual(motion.TakeOff)

	case "L":
		return m, m.manual(motion.Land)

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}

	case "home":
		m.cursor = 0

	case "end":
		if len(m.devices) > 0 {
			m.cursor = len(m.devices) - 1
		}
	}

	return m, nil
}

// manual sends a motion to the drone under the cursor without blocking
// the event loop.
func (m AppModel) manual(name motion.Name) tea.Cmd {
	d := m.shared.cfg.Dispatcher
	if d == nil || m.cursor >= len(m.devices) {
		return nil
	}
	id := m.devices[m.cursor].ID
	return func() tea.Msg {
		status, err := d.Dispatch(id, string(name), motion.Params{})
		return ManualMsg{Device: id, Motion: string(name), Status: status.String(), Err: err}
	}
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing drone console..."
	}

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 8 {
		bodyH = 8
	}

	listW := m.width / 4
	if listW < 24 {
		listW = 24
	}
	leftW := m.width - listW
	if leftW < 30 {
		leftW = 30
	}
	gridH := bodyH * 2 / 3
	historyH := bodyH - gridH

	fps := config.FrameRate
	if m.shared.cfg.Scheduler != nil {
		fps = m.shared.cfg.Scheduler.FrameRate()
	}

	menuBar := ui.RenderMenuBar(m.width, m.shared.cfg.Adapter, m.rehearsing(), !m.state.Paused)
	grid := ui.RenderTimelinePanel(leftW, gridH, m.tracks, m.frame, fps)
	history := ui.RenderHistoryPanel(m.shared.history.Values(), leftW, historyH)
	deviceList := ui.RenderDeviceList(m.devices, listW, bodyH, m.cursor)

	counts := ui.Counts{}
	for _, d := range m.devices {
		counts[d.State]++
	}
	statusBar := ui.RenderStatusBar(m.width, m.state, m.frame, counts, m.shared.history.Total())

	return ui.ComposeLayout(menuBar, grid, history, deviceList, statusBar)
}

// Notifier forwards core events into a running program. Hooks may fire
// before the program is attached; those events are dropped.
type Notifier struct {
	p atomic.Pointer[tea.Program]
}

// Attach starts forwarding to p.
func (n *Notifier) Attach(p *tea.Program) {
	n.p.Store(p)
}

// DeviceChanged is a discovery state hook.
func (n *Notifier) DeviceChanged(d discovery.Device) {
	if p := n.p.Load(); p != nil {
		p.Send(DeviceMsg(d))
	}
}

// Dispatched is a scheduler result hook.
func (n *Notifier) Dispatched(r timeline.Result) {
	if p := n.p.Load(); p != nil {
		p.Send(DispatchMsg(r))
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func rehearseCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.RehearsalTicks), func(t time.Time) tea.Msg {
		return RehearseMsg(t)
	})
}
