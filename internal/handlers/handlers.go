package handlers

import (
	"github.com/velocitygame/velocity-server/internal/logger"
	"github.com/velocitygame/velocity-server/internal/repository"
	"github.com/velocitygame/velocity-server/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Hub     *websocket.Hub
	Repo    repository.LeaderboardRepository
	Log     logger.Logger
	BaseURL string
}

// New creates a new Handlers instance with all dependencies
func New(hub *websocket.Hub, repo repository.LeaderboardRepository, log logger.Logger, baseURL string) *Handlers {
	return &Handlers{
		Hub:     hub,
		Repo:    repo,
		Log:     log,
		BaseURL: baseURL,
	}
}
