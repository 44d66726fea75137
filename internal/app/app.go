package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velocitygame/velocity-server/internal/game"
	"github.com/velocitygame/velocity-server/internal/handlers"
	"github.com/velocitygame/velocity-server/internal/logger"
	"github.com/velocitygame/velocity-server/internal/repository"
	"github.com/velocitygame/velocity-server/internal/websocket"
)

// App holds all application dependencies
type App struct {
	log           logger.Logger
	handlers      *handlers.Handlers
	repo          *repository.Repository
	cancelSweeper context.CancelFunc
}

// Config holds the runtime options for an App
type Config struct {
	DBPath  string
	BaseURL string
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg Config) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	registry := game.NewRegistry(log)
	hub := websocket.New(log)

	service := game.NewService(log, registry, game.NewScheduler(), hub, repo)
	hub.SetDispatcher(service)
	hub.Start()

	// Idle rooms are reaped in the background until shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go registry.StartSweeper(ctx, game.DefaultIdleTTL/4, game.DefaultIdleTTL)

	h := handlers.New(hub, repo, log, cfg.BaseURL)

	return &App{
		log:           log,
		handlers:      h,
		repo:          repo,
		cancelSweeper: cancel,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.cancelSweeper != nil {
		a.cancelSweeper()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}

// Run starts the HTTP server
func (a *App) Run(addr string) error {
	a.log.Info("Server starting", "addr", addr)
	return http.ListenAndServe(addr, a.Router())
}
