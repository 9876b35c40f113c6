package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"drone-dance.klederson.com/internal/discovery"
	"drone-dance.klederson.com/internal/drone"
	"drone-dance.klederson.com/internal/motion"
	"drone-dance.klederson.com/internal/timeline"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct{ ready []discovery.Summary }

func (f fakeLister) ListConnected(count int) []discovery.Summary {
	if count > 0 {
		out := make([]discovery.Summary, count)
		for i := range out {
			out[i] = discovery.Summary{ID: "uuid-00", Name: "name-00"}
		}
		return out
	}
	return f.ready
}

// fakeDrone records commands and fails when err is set.
type fakeDrone struct {
	drone.Commander
	mu    sync.Mutex
	moves []drone.Move
	lands int
	err   error
}

func (d *fakeDrone) Up(m drone.Move) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moves = append(d.moves, m)
	return d.err
}

func (d *fakeDrone) Land() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lands++
	return d.err
}

type fleet map[string]drone.Commander

func (f fleet) Lookup(id string) (drone.Commander, bool) {
	c, ok := f[id]
	return c, ok
}

type testEnv struct {
	e         *echo.Echo
	scheduler *timeline.Scheduler
	drones    fleet
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	drones := fleet{
		"d1":     &fakeDrone{},
		"broken": &fakeDrone{err: errors.New("link down")},
	}
	router := motion.NewRouter(drones, zerolog.Nop())
	scheduler := timeline.NewScheduler(router, 3)
	lister := fakeLister{ready: []discovery.Summary{{ID: "d1", Name: "RS_d1"}}}
	h := NewHandler(lister, router, scheduler, zerolog.Nop())
	return &testEnv{e: NewServer(h, zerolog.Nop()), scheduler: scheduler, drones: drones}
}

func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestListDrones(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/drones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"uuid":"d1","name":"RS_d1"}]`, rec.Body.String())

	rec = env.do(http.MethodGet, "/drones?debugNumber=2", "")
	assert.JSONEq(t, `[{"uuid":"uuid-00","name":"name-00"},{"uuid":"uuid-00","name":"name-00"}]`, rec.Body.String())

	rec = env.do(http.MethodGet, "/drones?debugNumber=abc", "")
	assert.JSONEq(t, `[{"uuid":"d1","name":"RS_d1"}]`, rec.Body.String())
}

func TestMotion(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/motion", `{"name":"up","uuid":"d1","speed":40,"steps":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"sent"}`, rec.Body.String())
	assert.Equal(t, []drone.Move{{Speed: 40, Steps: 30}}, env.drones["d1"].(*fakeDrone).moves)

	rec = env.do(http.MethodPost, "/motion", `{"name":"up","uuid":"ghost"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"not_ready"}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/motion", `{"name":"moonwalk","uuid":"d1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN_MOTION")

	rec = env.do(http.MethodPost, "/motion", `{"name":"land","uuid":"broken"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "link down")

	rec = env.do(http.MethodPost, "/motion", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKeyframeEditing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/timelines/d1/keyframes/9", `{"name":"up","speed":40,"steps":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"frame":9,"name":"up","speed":40,"steps":30}`, rec.Body.String())

	rec = env.do(http.MethodPut, "/timelines/d1/keyframes/2", `{"name":"takeoff"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"takeOff"`)

	rec = env.do(http.MethodPatch, "/timelines/d1/keyframes/9", `{"steps":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"frame":9,"name":"up","speed":40,"steps":10}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/timelines/d1/keyframes/2/move", `{"to":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/timelines/d1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tl TimelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tl))
	assert.Equal(t, timeline.NoFrame, tl.LastFired)
	require.Len(t, tl.Keyframes, 2)
	assert.Equal(t, 3, tl.Keyframes[0].Frame)
	assert.Equal(t, 9, tl.Keyframes[1].Frame)

	rec = env.do(http.MethodDelete, "/timelines/d1/keyframes/3", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodDelete, "/timelines/d1/keyframes/3", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/timelines", "")
	assert.JSONEq(t, `["d1"]`, rec.Body.String())
}

func TestKeyframeEditingErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   int
	}{
		{"negative frame", http.MethodPut, "/timelines/d1/keyframes/-1", `{"name":"up"}`, http.StatusBadRequest},
		{"non numeric frame", http.MethodPut, "/timelines/d1/keyframes/x", `{"name":"up"}`, http.StatusBadRequest},
		{"unknown motion", http.MethodPut, "/timelines/d1/keyframes/1", `{"name":"hover"}`, http.StatusBadRequest},
		{"patch missing timeline", http.MethodPatch, "/timelines/zz/keyframes/1", `{"steps":1}`, http.StatusNotFound},
		{"move missing timeline", http.MethodPost, "/timelines/zz/keyframes/1/move", `{"to":2}`, http.StatusNotFound},
		{"negative drop", http.MethodPost, "/timelines/d1/drop", `{"x":-100,"name":"up"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	env.do(http.MethodPut, "/timelines/d1/keyframes/1", `{"name":"up"}`)
	rec := env.do(http.MethodPatch, "/timelines/d1/keyframes/5", `{"steps":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(http.MethodPatch, "/timelines/d1/keyframes/1", `{"name":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodPost, "/timelines/d1/keyframes/7/move", `{"to":2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDrop(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/timelines/d1/drop", `{"x":175,"name":"frontFlip"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"frame":9,"name":"frontFlip","speed":0,"steps":0}`, rec.Body.String())
}

func TestPlaybackFiresKeyframes(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPut, "/timelines/d1/keyframes/9", `{"name":"up","speed":40,"steps":30}`)

	var fired []timeline.Fired
	for _, sec := range []string{"2.5", "2.8", "3.1", "3.4"} {
		rec := env.do(http.MethodPost, "/playback", `{"currentTime":`+sec+`,"totalTime":200,"paused":false}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp TickResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		fired = append(fired, resp.Fired...)
	}
	env.scheduler.Wait()

	require.Len(t, fired, 1)
	assert.Equal(t, "d1", fired[0].Device)
	d := env.drones["d1"].(*fakeDrone)
	assert.Equal(t, []drone.Move{{Speed: 40, Steps: 30}}, d.moves)
}

func TestErrorHandlerFallbacks(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	ErrorHandler(errors.New("boom"), e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")

	rec = httptest.NewRecorder()
	ErrorHandler(echo.ErrNotFound, e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "HTTP_ERROR")
}
