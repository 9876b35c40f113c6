package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"drone-dance.klederson.com/internal/discovery"
	"drone-dance.klederson.com/internal/motion"
	"drone-dance.klederson.com/internal/playback"
	"drone-dance.klederson.com/internal/timeline"
	"drone-dance.klederson.com/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFleet []discovery.Device

func (f fakeFleet) Devices() []discovery.Device { return f }

type sentCmd struct{ id, name string }

type fakeDispatcher struct{ sent []sentCmd }

func (f *fakeDispatcher) Dispatch(id, name string, _ motion.Params) (motion.Status, error) {
	f.sent = append(f.sent, sentCmd{id, name})
	return motion.StatusSent, nil
}

func newModel(clock *playback.LocalClock) (AppModel, *fakeDispatcher, *timeline.Scheduler) {
	d := &fakeDispatcher{}
	sched := timeline.NewScheduler(d, 3)
	m := New(Config{
		Adapter: "hci0",
		Fleet: fakeFleet{
			{ID: "a", Name: "RS_a", State: discovery.StateReady},
			{ID: "b", Name: "RS_b", State: discovery.StateConnecting},
		},
		Dispatcher: d,
		Scheduler:  sched,
		Clock:      clock,
	})
	return m, d, sched
}

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AppModel)
	require.True(t, ok)
	return am, cmd
}

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	_, ok := h.Last()
	assert.False(t, ok)
	assert.Nil(t, h.Values())

	for i := 0; i < 5; i++ {
		h.Push(ui.Event{Frame: i})
	}

	var frames []int
	for _, e := range h.Values() {
		frames = append(frames, e.Frame)
	}
	assert.Equal(t, []int{2, 3, 4}, frames)
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 4, last.Frame)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 5, h.Total())
}

func TestTickRefreshesSnapshot(t *testing.T) {
	m, _, sched := newModel(nil)
	sched.Timeline("a").Insert(4, "up", 10, 10)

	m, cmd := update(t, m, TickMsg(time.Now()))
	assert.NotNil(t, cmd)
	require.Len(t, m.devices, 2)
	require.Len(t, m.tracks, 1)
	assert.Equal(t, "RS_a", m.tracks[0].Name)
	assert.True(t, m.state.Paused)
}

func TestDispatchMessagesLandInHistory(t *testing.T) {
	m, _, _ := newModel(nil)

	m, _ = update(t, m, DispatchMsg(timeline.Result{
		Fired:  timeline.Fired{Device: "a", Keyframe: timeline.Keyframe{Frame: 9, Motion: "up"}},
		Status: motion.StatusFailed,
		Err:    errors.New("link lost"),
	}))
	m, _ = update(t, m, ManualMsg{Device: "b", Motion: "land", Status: "not_ready"})

	events := m.shared.history.Values()
	require.Len(t, events, 2)
	assert.Equal(t, 9, events[0].Frame)
	assert.Equal(t, "failed", events[0].Status)
	assert.Equal(t, "link lost", events[0].Err)
	assert.Equal(t, -1, events[1].Frame)
}

func TestManualCommandTargetsCursor(t *testing.T) {
	m, d, _ := newModel(nil)
	m, _ = update(t, m, TickMsg(time.Now()))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	require.NotNil(t, cmd)
	msg := cmd()

	assert.Equal(t, []sentCmd{{"b", "takeOff"}}, d.sent)
	assert.Equal(t, ManualMsg{Device: "b", Motion: "takeOff", Status: "sent"}, msg)
}

func TestRehearsalDrivesScheduler(t *testing.T) {
	clock := playback.NewLocalClock(time.Minute)
	m, d, sched := newModel(clock)
	sched.Timeline("a").Insert(3, "land", 0, 0)

	clock.Seek(time.Second + 100*time.Millisecond)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m, cmd := update(t, m, RehearseMsg(time.Now()))
	assert.NotNil(t, cmd)
	sched.Wait()

	assert.Equal(t, []sentCmd{{"a", "land"}}, d.sent)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.True(t, clock.State().Paused)
	_, n := sched.Last()
	assert.Equal(t, uint64(1), n)
}

func TestQuit(t *testing.T) {
	m, _, _ := newModel(nil)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestView(t *testing.T) {
	m, _, _ := newModel(playback.NewLocalClock(time.Minute))
	assert.Contains(t, m.View(), "Initializing")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = update(t, m, TickMsg(time.Now()))
	view := m.View()
	assert.Contains(t, view, "DRONES [2]")
	assert.Contains(t, view, "TIMELINE")
	assert.Contains(t, view, "DISPATCH LOG")
	assert.True(t, strings.Contains(view, "PAUSED"))
}
