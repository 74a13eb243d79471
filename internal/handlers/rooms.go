package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ultimatecode/internal/game"
	"ultimatecode/internal/session"
)

type createRoomRequest struct {
	PlayerName string `json:"player_name" validate:"max=32"`
	RoomName   string `json:"room_name" validate:"max=40"`
	MaxPlayers int    `json:"max_players"`
	Password   string `json:"password" validate:"max=64"`
}

type joinRoomRequest struct {
	PlayerName string `json:"player_name" validate:"max=32"`
	Password   string `json:"password" validate:"max=64"`
}

type addBotRequest struct {
	Name       string `json:"name" validate:"max=32"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type sessionResponse struct {
	Room   game.RoomSnapshot   `json:"room"`
	Player game.PlayerSnapshot `json:"player"`
	Token  string              `json:"token,omitempty"`
}

type roomListResponse struct {
	Rooms []game.RoomSnapshot `json:"rooms"`
}

// CreateRoom handles POST /api/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	var opts []game.RoomOption
	if req.RoomName != "" {
		opts = append(opts, game.WithRoomName(req.RoomName))
	}

	res, err := h.service.CreateRoom(req.PlayerName, req.MaxPlayers, req.Password, opts...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusCreated, res)
}

// JoinRoom handles POST /api/rooms/{roomID}/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.JoinRoom(chi.URLParam(r, "roomID"), req.PlayerName, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, res)
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, status int, res session.JoinResult) {
	token, err := h.issuer.Issue(res.Room.ID, res.Player.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, sessionResponse{Room: res.Room, Player: res.Player.Snapshot(), Token: token})
}

// LeaveRoom handles POST /api/rooms/{roomID}/leave
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	a, err := roomActor(r, chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.LeaveRoom(a); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddBot handles POST /api/rooms/{roomID}/bots
func (h *Handler) AddBot(w http.ResponseWriter, r *http.Request) {
	a, err := roomActor(r, chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req addBotRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.AddAutomatedPlayer(a, req.Name, game.Difficulty(req.Difficulty))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Room: res.Room, Player: res.Player.Snapshot()})
}

// StartMatch handles POST /api/rooms/{roomID}/start
func (h *Handler) StartMatch(w http.ResponseWriter, r *http.Request) {
	a, err := roomActor(r, chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	snap, err := h.service.StartMatch(a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListRooms handles GET /api/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, roomListResponse{Rooms: h.service.ListRooms()})
}

// GetRoom handles GET /api/rooms/{roomID}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetRoom(chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RoomQR handles GET /api/rooms/{roomID}/qr with a PNG invite code.
func (h *Handler) RoomQR(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := h.service.GetRoom(roomID); err != nil {
		h.writeError(w, r, err)
		return
	}

	png, err := generateQRCode(h.inviteURL(r, roomID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
