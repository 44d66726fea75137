package repository

import (
	"context"

	"github.com/velocitygame/velocity-server/internal/models"
)

// LeaderboardRepository defines the persisted player-record operations. The
// store is keyed by display name; UpsertPlayer is an idempotent merge that
// optionally bumps the win counter. Gameplay never reads it synchronously.
type LeaderboardRepository interface {
	UpsertPlayer(ctx context.Context, name string, appearance models.Appearance, incrementWins bool) error
	GetPlayer(ctx context.Context, name string) (*models.LeaderboardEntry, error)
	TopPlayers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}
