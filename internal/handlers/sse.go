package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	datastar "github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"ultimatecode/internal/hub"
)

const sseHeartbeat = 30 * time.Second

// StreamLobbySSE handles GET /sse/lobby. Every lobby refresh patches the
// "rooms" signal with the current room list.
func (h *Handler) StreamLobbySSE(w http.ResponseWriter, r *http.Request) {
	sub := h.hub.SubscribeLobby()
	defer h.hub.Unsubscribe(sub)

	sse := datastar.NewSSE(w, r)
	if err := sse.MarshalAndPatchSignals(map[string]any{
		"connected": true,
		"rooms":     h.service.ListRooms(),
	}); err != nil {
		h.logger.Debug("failed to send initial lobby state", zap.Error(err))
		return
	}

	h.streamSSE(r, sse, sub, func(ev hub.Event) map[string]any {
		return map[string]any{
			"event": ev.Type,
			"rooms": h.service.ListRooms(),
		}
	})
}

// StreamRoomSSE handles GET /sse/rooms/{roomID}
func (h *Handler) StreamRoomSSE(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := h.service.GetRoom(roomID); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub := h.hub.SubscribeRoom(roomID)
	defer h.hub.Unsubscribe(sub)

	snap, err := h.service.GetRoom(roomID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	initial := map[string]any{
		"connected": true,
		"room":      snap,
	}
	gameID := snap.ActiveGameID
	if gameID == "" {
		gameID = snap.LastGameID
	}
	if gameID != "" {
		if g, err := h.service.GetGame(gameID); err == nil {
			initial["game"] = g
		}
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.MarshalAndPatchSignals(initial); err != nil {
		h.logger.Debug("failed to send initial room state", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	h.streamSSE(r, sse, sub, func(ev hub.Event) map[string]any {
		signals := map[string]any{"event": ev.Type}
		switch ev.Type {
		case hub.TypeRoomUpdate:
			signals["room"] = ev.Payload
		case hub.TypeGameStarted, hub.TypeGameUpdate, hub.TypeGameOver:
			signals["game"] = ev.Payload
		case hub.TypeRoomClosed:
			signals["closed"] = true
		}
		return signals
	})
}

// streamSSE forwards hub events as signal patches until the client goes away
// or the subscription is closed.
func (h *Handler) streamSSE(r *http.Request, sse *datastar.ServerSentEventGenerator, sub *hub.Subscription, toSignals func(hub.Event) map[string]any) {
	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := sse.Send("keepalive", []string{fmt.Sprintf(`{"time":"%s"}`, time.Now().Format(time.RFC3339))}); err != nil {
				h.logger.Debug("keepalive failed, closing stream", zap.String("room_id", sub.RoomID()), zap.Error(err))
				return
			}
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := sse.MarshalAndPatchSignals(toSignals(ev)); err != nil {
				h.logger.Debug("failed to patch signals", zap.String("room_id", sub.RoomID()), zap.Error(err))
				return
			}
		}
	}
}
