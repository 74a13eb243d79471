package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ultimatecode/internal/game"
)

// Leaderboard handles GET /api/stats/leaderboard?limit=N
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, r, errStatsDisabled)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, r, &game.Error{Kind: game.KindValidation, Rule: "limit", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.stats.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// PlayerStats handles GET /api/stats/players/{name}
func (h *Handler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, r, errStatsDisabled)
		return
	}

	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, &game.Error{Kind: game.KindValidation, Rule: "name", Message: "invalid player name"})
		return
	}

	ps, err := h.stats.PlayerStats(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// GameDetails handles GET /api/stats/games/{gameID}
func (h *Handler) GameDetails(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, r, errStatsDisabled)
		return
	}

	details, err := h.stats.GameDetails(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
