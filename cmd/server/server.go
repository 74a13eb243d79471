package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ultimatecode/internal/auth"
	"ultimatecode/internal/config"
	"ultimatecode/internal/game"
	"ultimatecode/internal/handlers"
	"ultimatecode/internal/hub"
	localMiddleware "ultimatecode/internal/middleware"
	"ultimatecode/internal/reaper"
	"ultimatecode/internal/session"
	"ultimatecode/internal/stats"
	"ultimatecode/internal/store"
)

const limiterIdle = 10 * time.Minute

// App wires the registry, hub, reaper, stats and HTTP surface together.
type App struct {
	cfg      *config.ServerConfig
	logger   *zap.Logger
	store    *store.MemoryStore
	hub      *hub.Hub
	service  *session.Service
	reaper   *reaper.Reaper
	limiter  *localMiddleware.RateLimiter
	db       *gorm.DB
	recorder *stats.Recorder
	router   http.Handler
}

// NewApp builds the application from cfg
func NewApp(cfg *config.ServerConfig, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	a.store = store.NewMemoryStore(
		store.WithDefaultMaxPlayers(cfg.Game.DefaultMaxPlayers),
		store.WithRoomCodeLength(cfg.Game.RoomCodeLength),
		store.WithBcryptCost(cfg.Game.BcryptCost),
	)
	a.hub = hub.New(cfg.Game.SubscriberBuffer, logger.Named("hub"))

	var sink session.Sink = session.NopSink{}
	var statsReader handlers.StatsReader
	if cfg.Database.Enabled {
		db, err := stats.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("open stats database: %w", err)
		}
		a.db = db
		a.recorder = stats.NewRecorder(db, cfg.Database.EventBuffer, logger)
		sink = a.recorder
		statsReader = stats.NewQueries(db)
	} else {
		logger.Info("stats database disabled")
	}

	a.service = session.New(a.store, a.hub, sink, game.NewRandomHeuristic(), logger, session.Options{
		AutoPlayDelay: cfg.Game.AutoPlayDelay,
	})
	a.reaper = reaper.New(a.store, a.hub, cfg.Game.ReapInterval, cfg.Game.IdleTimeout, logger)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		logger.Warn("no JWT secret configured, generated a per-process secret; tokens will not survive a restart")
		secret = auth.RandomSecret()
	}
	issuer := auth.NewIssuer(secret, cfg.Auth.TokenTTL)

	a.limiter = localMiddleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
	h := handlers.New(a.service, a.hub, statsReader, issuer, cfg, logger)
	a.router = handlers.SetupRouter(h, cfg, &handlers.RouterOptions{
		RateLimiter: a.limiter,
		Ready:       a.ready,
	})

	return a, nil
}

// Handler returns the HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) ready() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Run serves HTTP and runs background loops until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	addr := net.JoinHostPort(a.cfg.Server.Host, a.cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout, // 0 for websocket/SSE support
		IdleTimeout:  a.cfg.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(a.logger.Named("http")),
		// Request contexts end with bgCtx so open streams return on shutdown
		BaseContext:  func(net.Listener) context.Context { return bgCtx },
	}
	go a.reaper.Run(bgCtx)
	go a.cleanupLimiter(bgCtx)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			a.Close(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("server forced to shutdown", zap.Error(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("server gracefully stopped")
	return nil
}

// Close stops automated turns and flushes pending stats.
func (a *App) Close(ctx context.Context) error {
	a.service.Close()

	if a.recorder != nil {
		if err := a.recorder.Close(ctx); err != nil && !errors.Is(err, stats.ErrClosed) {
			return fmt.Errorf("flush stats: %w", err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return nil
}

func (a *App) cleanupLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Cleanup(limiterIdle); n > 0 {
				a.logger.Debug("forgot idle rate limit clients", zap.Int("count", n))
			}
		}
	}
}
