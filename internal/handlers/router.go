package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"ultimatecode/internal/config"
	localMiddleware "ultimatecode/internal/middleware"
)

// RouterOptions allows customization of router setup for tests
type RouterOptions struct {
	DisableRateLimiting  bool
	DisableRequestLogger bool
	CustomMiddleware     []func(http.Handler) http.Handler

	// RateLimiter is used instead of a fresh limiter so callers can run its cleanup.
	RateLimiter *localMiddleware.RateLimiter

	// Ready reports readiness for /health/ready; nil means always ready.
	Ready func() error
}

// SetupRouter creates the application router with all routes and middleware
func SetupRouter(h *Handler, cfg *config.ServerConfig, opts *RouterOptions) *chi.Mux {
	if opts == nil {
		opts = &RouterOptions{}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if !opts.DisableRequestLogger {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  zap.NewStdLog(h.logger.Named("http")),
			NoColor: true,
		}))
	}
	r.Use(middleware.Recoverer)

	r.Use(localMiddleware.RequestSizeLimiter(cfg.Server.MaxRequestSize))
	r.Use(localMiddleware.SecurityHeaders())

	if !opts.DisableRateLimiting {
		rateLimiter := opts.RateLimiter
		if rateLimiter == nil {
			rateLimiter = localMiddleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
		}
		r.Use(rateLimiter.Middleware())
	}

	for _, mw := range opts.CustomMiddleware {
		r.Use(mw)
	}

	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r.Route("/api", func(r chi.Router) {
		// Streams live outside /api and are not subject to the request timeout
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/rooms", h.ListRooms)
		r.Post("/rooms", h.CreateRoom)
		r.Get("/rooms/{roomID}", h.GetRoom)
		r.Get("/rooms/{roomID}/qr", h.RoomQR)
		r.Post("/rooms/{roomID}/join", h.JoinRoom)
		r.Get("/games/{gameID}", h.GetGame)

		r.Get("/stats/leaderboard", h.Leaderboard)
		r.Get("/stats/players/{name}", h.PlayerStats)
		r.Get("/stats/games/{gameID}", h.GameDetails)

		// Player actions need the token issued on create/join
		r.Group(func(r chi.Router) {
			r.Use(h.issuer.RequireToken(h.tokenError))

			r.Post("/rooms/{roomID}/leave", h.LeaveRoom)
			r.Post("/rooms/{roomID}/bots", h.AddBot)
			r.Post("/rooms/{roomID}/start", h.StartMatch)

			r.Post("/games/{gameID}/call", h.CallNumbers)
			r.Post("/games/{gameID}/pass", h.UsePass)
			r.Post("/games/{gameID}/reverse", h.UseReverse)
			r.Post("/games/{gameID}/auto", h.PlayAutomated)
		})
	})

	r.Get("/ws/lobby", h.StreamLobbyWS)
	r.Get("/ws/rooms/{roomID}", h.StreamRoomWS)
	r.Get("/sse/lobby", ValidateSSERequest(h.StreamLobbySSE))
	r.Get("/sse/rooms/{roomID}", ValidateSSERequest(h.StreamRoomSSE))

	// Health check endpoints (no auth required)
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(); err != nil {
				h.logger.Warn("readiness check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("NOT READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{Kind: "not_found", Message: "no such route"}})
	})

	return r
}
