package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/playback"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello WSMessage
	require.NoError(t, ws.ReadJSON(&hello))
	require.Equal(t, MsgTypeConnected, hello.Type)
	return ws
}

func sendPlayback(t *testing.T, ws *websocket.Conn, current float64, paused bool) TickResponse {
	t.Helper()
	payload, err := json.Marshal(PlaybackRequest{CurrentTime: current, TotalTime: 120, Paused: paused})
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePlayback, Payload: payload}))

	var reply WSMessage
	require.NoError(t, ws.ReadJSON(&reply))
	require.Equal(t, MsgTypeTick, reply.Type)

	var tick TickResponse
	require.NoError(t, json.Unmarshal(reply.Payload, &tick))
	return tick
}

func TestPlaybackFeed(t *testing.T) {
	env := newTestEnv(t)
	env.scheduler.Timeline("d1").Insert(4, "land", 0, 0)
	ws := dialFeed(t, env)

	tick := sendPlayback(t, ws, 1.2, false)
	assert.Equal(t, 3, tick.Frame)
	assert.Empty(t, tick.Fired)

	tick = sendPlayback(t, ws, 1.5, false)
	assert.Equal(t, 4, tick.Frame)
	require.Len(t, tick.Fired, 1)
	assert.Equal(t, "land", tick.Fired[0].Keyframe.Motion)

	tick = sendPlayback(t, ws, 1.5, true)
	assert.Empty(t, tick.Fired)

	env.scheduler.Wait()
	assert.Equal(t, 1, env.drones["d1"].(*fakeDrone).lands)
}

func TestPlaybackFeedControlMessages(t *testing.T) {
	env := newTestEnv(t)
	ws := dialFeed(t, env)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	var reply WSMessage
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, MsgTypePong, reply.Type)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: "rewind"}))
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, MsgTypeError, reply.Type)
	assert.Contains(t, string(reply.Payload), "INVALID_TYPE")

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePlayback, Payload: json.RawMessage(`"nope"`)}))
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, MsgTypeError, reply.Type)
	assert.Contains(t, string(reply.Payload), "INVALID_PAYLOAD")
}
