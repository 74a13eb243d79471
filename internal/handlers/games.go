package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ultimatecode/internal/game"
)

type callRequest struct {
	Numbers []int `json:"numbers" validate:"required"`
}

type autoResponse struct {
	Action game.ActionType `json:"action"`
	Result any             `json:"result"`
}

// CallNumbers handles POST /api/games/{gameID}/call
func (h *Handler) CallNumbers(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req callRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.CallNumbers(chi.URLParam(r, "gameID"), a, req.Numbers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UsePass handles POST /api/games/{gameID}/pass
func (h *Handler) UsePass(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.UsePass(chi.URLParam(r, "gameID"), a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UseReverse handles POST /api/games/{gameID}/reverse
func (h *Handler) UseReverse(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.UseReverse(chi.URLParam(r, "gameID"), a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PlayAutomated handles POST /api/games/{gameID}/auto, running the current
// automated seat's turn right away.
func (h *Handler) PlayAutomated(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out, err := h.service.PlayAutomated(chi.URLParam(r, "gameID"), a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := autoResponse{Action: out.Type}
	switch {
	case out.Call != nil:
		resp.Result = out.Call
	case out.Pass != nil:
		resp.Result = out.Pass
	case out.Reverse != nil:
		resp.Result = out.Reverse
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetGame handles GET /api/games/{gameID}
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetGame(chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
