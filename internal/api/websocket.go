package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the playback feed
const (
	// Client -> Server
	MsgTypePlayback = "playback"
	MsgTypePing     = "ping"

	// Server -> Client
	MsgTypeConnected = "connected"
	MsgTypeTick      = "tick"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

// WSMessage is the envelope of every frame on the playback socket.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message.
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// PlaybackFeed streams play-head updates from a browser player into the
// scheduler and answers each with the keyframes it fired.
type PlaybackFeed struct {
	handler  *Handler
	upgrader websocket.Upgrader
}

// NewPlaybackFeed creates the websocket handler.
func NewPlaybackFeed(h *Handler) *PlaybackFeed {
	return &PlaybackFeed{
		handler: h,
		upgrader: websocket.Upgrader{
			// the grid page is served from the music service origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the connection and runs the feed until the
// client goes away.
func (f *PlaybackFeed) HandleWebSocket(c echo.Context) error {
	ws, err := f.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	log := f.handler.log.With().Str("remote", c.RealIP()).Logger()
	log.Info().Msg("playback feed connected")
	f.send(ws, MsgTypeConnected, nil)

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("playback feed read failed")
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			f.send(ws, MsgTypePong, nil)
		case MsgTypePlayback:
			var req PlaybackRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				f.send(ws, MsgTypeError, WSErrorResponse{Message: "invalid playback payload: " + err.Error(), Code: "INVALID_PAYLOAD"})
				continue
			}
			f.send(ws, MsgTypeTick, f.handler.tick(req))
		default:
			f.send(ws, MsgTypeError, WSErrorResponse{Message: "unknown message type: " + msg.Type, Code: "INVALID_TYPE"})
		}
	}

	log.Info().Msg("playback feed disconnected")
	return nil
}

func (f *PlaybackFeed) send(ws *websocket.Conn, kind string, payload interface{}) {
	msg := WSMessage{Type: kind, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			f.handler.log.Error().Err(err).Str("type", kind).Msg("failed to encode feed message")
			return
		}
		msg.Payload = data
	}
	if err := ws.WriteJSON(msg); err != nil {
		f.handler.log.Debug().Err(err).Str("type", kind).Msg("failed to write feed message")
	}
}
