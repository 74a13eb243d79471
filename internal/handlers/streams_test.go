package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultimatecode/internal/hub"
	"ultimatecode/internal/session"
)

type wireEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestLobbyWebSocket(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	conn := dialWS(t, srv, "/ws/lobby")
	assert.Equal(t, TypeRooms, readEvent(t, conn).Type)

	created, err := ts.service.CreateRoom("Alice", 2, "")
	require.NoError(t, err)

	ev := readEvent(t, conn)
	assert.Equal(t, hub.TypeRefresh, ev.Type)
	assert.Equal(t, created.Room.ID, ev.RoomID)
}

func TestRoomWebSocket(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	created, err := ts.service.CreateRoom("Alice", 2, "")
	require.NoError(t, err)
	roomID := created.Room.ID

	resp, err := http.Get(srv.URL + "/ws/rooms/NOPE00")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn := dialWS(t, srv, "/ws/rooms/"+roomID)
	first := readEvent(t, conn)
	assert.Equal(t, hub.TypeRoomUpdate, first.Type)
	assert.Equal(t, roomID, first.RoomID)

	_, err = ts.service.JoinRoom(roomID, "Bob", "")
	require.NoError(t, err)
	assert.Equal(t, hub.TypeRoomUpdate, readEvent(t, conn).Type)

	bob := ts.service.ListRooms()[0].Players[1]
	require.NoError(t, ts.service.LeaveRoom(session.Actor{RoomID: roomID, PlayerID: bob.ID}))
	assert.Equal(t, hub.TypeRoomUpdate, readEvent(t, conn).Type)

	require.NoError(t, ts.service.LeaveRoom(session.Actor{RoomID: roomID, PlayerID: created.Player.ID}))
	assert.Equal(t, hub.TypeRoomClosed, readEvent(t, conn).Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	assert.Eventually(t, func() bool { return ts.hub.Subscribers(roomID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestLobbySSE(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse/lobby", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	waitFor := func(substr string) {
		t.Helper()
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream ended before %q", substr)
				if strings.Contains(line, substr) {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", substr)
			}
		}
	}

	waitFor(`"connected":true`)
	require.Eventually(t, func() bool { return ts.hub.Subscribers("") == 1 }, time.Second, 10*time.Millisecond)

	_, err = ts.service.CreateRoom("Alice", 2, "")
	require.NoError(t, err)
	waitFor(`"event":"refresh"`)
}

func TestRoomSSERejectsUnknownRoomAndParams(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/sse/rooms/NOPE00", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/sse/lobby?evil=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
