package api

import (
	"errors"
	"net/http"
	"strconv"

	"drone-dance.klederson.com/internal/config"
	"drone-dance.klederson.com/internal/motion"
	"drone-dance.klederson.com/internal/playback"
	"drone-dance.klederson.com/internal/timeline"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler serves the choreography API used by the browser grid.
type Handler struct {
	devices   DeviceLister
	router    MotionDispatcher
	scheduler *timeline.Scheduler
	version   string
	log       zerolog.Logger
}

// NewHandler creates a handler.
func NewHandler(devices DeviceLister, router MotionDispatcher, scheduler *timeline.Scheduler, log zerolog.Logger) *Handler {
	return &Handler{
		devices:   devices,
		router:    router,
		scheduler: scheduler,
		version:   config.AppVersion,
		log:       log,
	}
}

// MotionRequest is the body of POST /motion.
type MotionRequest struct {
	Name  string `json:"name"`
	UUID  string `json:"uuid"`
	Speed int    `json:"speed"`
	Steps int    `json:"steps"`
}

// MotionResponse reports how a dispatch ended.
type MotionResponse struct {
	Status string `json:"status"`
}

// KeyframeRequest is the body of PUT on a keyframe.
type KeyframeRequest struct {
	Name  string `json:"name"`
	Speed int    `json:"speed"`
	Steps int    `json:"steps"`
}

// DropRequest places a palette icon at a horizontal grid offset.
type DropRequest struct {
	X float64 `json:"x"`
	KeyframeRequest
}

// MoveRequest is the body of a keyframe move.
type MoveRequest struct {
	To int `json:"to"`
}

// TimelineResponse describes one drone track.
type TimelineResponse struct {
	UUID      string              `json:"uuid"`
	LastFired int                 `json:"lastFired"`
	Keyframes []timeline.Keyframe `json:"keyframes"`
}

// PlaybackRequest is one play-head update from the browser player, in seconds.
type PlaybackRequest struct {
	CurrentTime float64 `json:"currentTime"`
	TotalTime   float64 `json:"totalTime"`
	Paused      bool    `json:"paused"`
}

// State converts the request to a play-head state.
func (r PlaybackRequest) State() playback.State {
	return playback.FromSeconds(r.CurrentTime, r.TotalTime, r.Paused)
}

// TickResponse lists the keyframes a play-head update fired.
type TickResponse struct {
	Frame int              `json:"frame"`
	Fired []timeline.Fired `json:"fired"`
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleListDrones returns the ready drones. debugNumber > 0 returns that
// many placeholder entries instead.
func (h *Handler) HandleListDrones(c echo.Context) error {
	count, _ := strconv.Atoi(c.QueryParam("debugNumber"))
	return c.JSON(http.StatusOK, h.devices.ListConnected(count))
}

// HandleMotion sends one motion to one drone.
func (h *Handler) HandleMotion(c echo.Context) error {
	var req MotionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid motion body", err)
	}

	h.log.Info().Str("name", req.Name).Int("speed", req.Speed).
		Int("steps", req.Steps).Str("uuid", req.UUID).Msg("motion requested")

	status, err := h.router.Dispatch(req.UUID, req.Name, motion.Params{Speed: req.Speed, Steps: req.Steps})
	switch {
	case errors.Is(err, motion.ErrUnknownMotion):
		return NewUnknownMotionError(err)
	case err != nil:
		return NewBadGatewayError("motion not delivered", err)
	}
	return c.JSON(http.StatusOK, MotionResponse{Status: status.String()})
}

// HandleListTimelines returns the ids of drones with a track.
func (h *Handler) HandleListTimelines(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.Devices())
}

// HandleGetTimeline returns one drone track. Unknown drones have an empty one.
func (h *Handler) HandleGetTimeline(c echo.Context) error {
	id := c.Param("uuid")
	resp := TimelineResponse{UUID: id, LastFired: timeline.NoFrame, Keyframes: []timeline.Keyframe{}}
	if t, ok := h.scheduler.Lookup(id); ok {
		resp.LastFired = t.LastFired()
		resp.Keyframes = t.Keyframes()
	}
	return c.JSON(http.StatusOK, resp)
}

func frameParam(c echo.Context) (int, error) {
	frame, err := strconv.Atoi(c.Param("frame"))
	if err != nil {
		return 0, NewBadRequestError("frame must be an integer", err)
	}
	if frame < 0 {
		return 0, NewBadRequestError("invalid frame", timeline.ErrInvalidFrame)
	}
	return frame, nil
}

func canonicalMotion(name string) (string, error) {
	n, err := motion.Parse(name)
	if err != nil {
		return "", NewUnknownMotionError(err)
	}
	return string(n), nil
}

// HandlePutKeyframe places a keyframe, replacing any occupant of the frame.
func (h *Handler) HandlePutKeyframe(c echo.Context) error {
	frame, err := frameParam(c)
	if err != nil {
		return err
	}
	var req KeyframeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid keyframe body", err)
	}
	return h.insert(c, frame, req)
}

// HandleDrop places a keyframe at the grid slot under a drop offset.
func (h *Handler) HandleDrop(c echo.Context) error {
	var req DropRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid drop body", err)
	}
	frame, err := timeline.DropFrame(req.X, config.KeyframeInterval)
	if err != nil {
		return NewBadRequestError("invalid drop offset", err)
	}
	return h.insert(c, frame, req.KeyframeRequest)
}

func (h *Handler) insert(c echo.Context, frame int, req KeyframeRequest) error {
	name, err := canonicalMotion(req.Name)
	if err != nil {
		return err
	}
	kf, err := h.scheduler.Timeline(c.Param("uuid")).Insert(frame, name, req.Speed, req.Steps)
	if err != nil {
		return NewBadRequestError("invalid keyframe", err)
	}
	return c.JSON(http.StatusOK, kf)
}

// HandlePatchKeyframe edits selected fields of a keyframe.
func (h *Handler) HandlePatchKeyframe(c echo.Context) error {
	frame, err := frameParam(c)
	if err != nil {
		return err
	}
	var p timeline.Patch
	if err := c.Bind(&p); err != nil {
		return NewBadRequestError("invalid keyframe patch", err)
	}
	if p.Motion != nil {
		name, err := canonicalMotion(*p.Motion)
		if err != nil {
			return err
		}
		p.Motion = &name
	}

	id := c.Param("uuid")
	t, ok := h.scheduler.Lookup(id)
	if !ok {
		return NewNotFoundError("timeline", id)
	}
	kf, found, err := t.Update(frame, p)
	if err != nil {
		return NewBadRequestError("invalid keyframe", err)
	}
	if !found {
		return NewNotFoundError("keyframe", strconv.Itoa(frame))
	}
	return c.JSON(http.StatusOK, kf)
}

// HandleDeleteKeyframe removes a keyframe. Removing an empty frame succeeds.
func (h *Handler) HandleDeleteKeyframe(c echo.Context) error {
	frame, err := frameParam(c)
	if err != nil {
		return err
	}
	if t, ok := h.scheduler.Lookup(c.Param("uuid")); ok {
		if _, err := t.Remove(frame); err != nil {
			return NewBadRequestError("invalid keyframe", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleMoveKeyframe drags a keyframe to another frame.
func (h *Handler) HandleMoveKeyframe(c echo.Context) error {
	frame, err := frameParam(c)
	if err != nil {
		return err
	}
	var req MoveRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid move body", err)
	}

	id := c.Param("uuid")
	t, ok := h.scheduler.Lookup(id)
	if !ok {
		return NewNotFoundError("timeline", id)
	}
	kf, found, err := t.Move(frame, req.To)
	if err != nil {
		return NewBadRequestError("invalid move", err)
	}
	if !found {
		return NewNotFoundError("keyframe", strconv.Itoa(frame))
	}
	return c.JSON(http.StatusOK, kf)
}

// HandlePlayback feeds one play-head update to the scheduler.
func (h *Handler) HandlePlayback(c echo.Context) error {
	var req PlaybackRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid playback body", err)
	}
	return c.JSON(http.StatusOK, h.tick(req))
}

func (h *Handler) tick(req PlaybackRequest) TickResponse {
	st := req.State()
	fired := h.scheduler.Tick(st)
	if fired == nil {
		fired = []timeline.Fired{}
	}
	return TickResponse{Frame: st.Frame(h.scheduler.FrameRate()), Fired: fired}
}
