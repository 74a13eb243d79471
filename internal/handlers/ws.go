package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ultimatecode/internal/hub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// TypeRooms is the first lobby message: the full room list.
const TypeRooms = "rooms"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamLobbyWS handles GET /ws/lobby
func (h *Handler) StreamLobbyWS(w http.ResponseWriter, r *http.Request) {
	sub := h.hub.SubscribeLobby()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.Unsubscribe(sub)
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.serveWS(r.Context(), conn, sub, hub.Event{Type: TypeRooms, Payload: h.service.ListRooms()})
}

// StreamRoomWS handles GET /ws/rooms/{roomID}
func (h *Handler) StreamRoomWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := h.service.GetRoom(roomID); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub := h.hub.SubscribeRoom(roomID)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.Unsubscribe(sub)
		h.logger.Debug("websocket upgrade failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	initial := hub.Event{Type: hub.TypeRoomClosed, RoomID: roomID}
	if snap, err := h.service.GetRoom(roomID); err == nil {
		initial = hub.Event{Type: hub.TypeRoomUpdate, RoomID: roomID, Payload: snap}
	}
	h.serveWS(r.Context(), conn, sub, initial)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, sub *hub.Subscription, initial hub.Event) {
	defer h.hub.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		readPump(conn)
	}()
	writePump(ctx, conn, sub, initial, done)
}

// readPump discards client messages and keeps the read deadline fresh
// while pongs arrive. It returns when the connection fails.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, sub *hub.Subscription, initial hub.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	if err := writeEvent(conn, initial); err != nil {
		return
	}
	if initial.Type == hub.TypeRoomClosed {
		writeClose(conn, "room closed")
		return
	}

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				writeClose(conn, "room closed")
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			writeCloseCode(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev hub.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func writeClose(conn *websocket.Conn, reason string) {
	writeCloseCode(conn, websocket.CloseNormalClosure, reason)
}

func writeCloseCode(conn *websocket.Conn, code int, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
