package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ultimatecode/internal/auth"
	"ultimatecode/internal/config"
	"ultimatecode/internal/game"
	"ultimatecode/internal/hub"
	"ultimatecode/internal/session"
	"ultimatecode/internal/stats"
)

// StatsReader serves the statistics endpoints. It is nil when the database is disabled.
type StatsReader interface {
	Leaderboard(ctx context.Context, limit int) ([]stats.LeaderboardEntry, error)
	PlayerStats(ctx context.Context, name string) (*stats.PlayerStats, error)
	GameDetails(ctx context.Context, gameID string) (*stats.GameDetails, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service  *session.Service
	hub      *hub.Hub
	stats    StatsReader
	issuer   *auth.Issuer
	config   *config.ServerConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates a new handler. statsReader may be nil.
func New(service *session.Service, h *hub.Hub, statsReader StatsReader, issuer *auth.Issuer, cfg *config.ServerConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handler{
		service:  service,
		hub:      h,
		stats:    statsReader,
		issuer:   issuer,
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type errorBody struct {
	Kind    string `json:"kind"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

var errStatsDisabled = errors.New("statistics are disabled")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status and response body.
func statusFor(err error) (int, errorBody) {
	var gameErr *game.Error
	if errors.As(err, &gameErr) {
		body := errorBody{Kind: string(gameErr.Kind), Rule: gameErr.Rule, Message: gameErr.Message}
		switch gameErr.Kind {
		case game.KindValidation:
			return http.StatusBadRequest, body
		case game.KindAuth:
			return http.StatusForbidden, body
		case game.KindNotFound:
			return http.StatusNotFound, body
		case game.KindTurn, game.KindCapability, game.KindCapacity:
			return http.StatusConflict, body
		}
	}

	switch {
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorBody{Kind: "auth", Rule: "token", Message: err.Error()}
	case errors.Is(err, errStatsDisabled):
		return http.StatusServiceUnavailable, errorBody{Kind: "unavailable", Message: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Kind: "internal", Message: "internal server error"}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: body})
}

// decode reads a JSON body into dst and validates it. An empty body is
// treated as an empty object.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &game.Error{Kind: game.KindValidation, Rule: "body", Message: fmt.Sprintf("invalid request body: %v", err)}
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return &game.Error{Kind: game.KindValidation, Rule: "request", Message: strings.Join(fields, "; ")}
		}
		return &game.Error{Kind: game.KindValidation, Rule: "request", Message: err.Error()}
	}
	return nil
}

// actor returns the authenticated player from the request context.
func actor(r *http.Request) (session.Actor, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return session.Actor{}, auth.ErrMissingToken
	}
	return session.Actor{RoomID: claims.RoomID, PlayerID: claims.PlayerID}, nil
}

// roomActor is actor for routes scoped to a room; the token must belong to roomID.
func roomActor(r *http.Request, roomID string) (session.Actor, error) {
	a, err := actor(r)
	if err != nil {
		return a, err
	}
	if a.RoomID != roomID {
		return a, game.ErrNotMember
	}
	return a, nil
}

// tokenError writes the response for requests rejected by RequireToken.
func (h *Handler) tokenError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeError(w, r, err)
}
