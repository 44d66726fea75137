package mock

import (
	"context"

	"github.com/velocitygame/velocity-server/internal/models"
	"github.com/velocitygame/velocity-server/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing
// error paths without database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.UpsertPlayerError = errors.New("database error")
type Repository struct {
	repository.LeaderboardRepository

	UpsertPlayerError error
	GetPlayerError    error
	TopPlayersError   error
}

// NewRepository creates a mock wrapping the given real repository
func NewRepository(real repository.LeaderboardRepository) *Repository {
	return &Repository{LeaderboardRepository: real}
}

func (m *Repository) UpsertPlayer(ctx context.Context, name string, appearance models.Appearance, incrementWins bool) error {
	if m.UpsertPlayerError != nil {
		return m.UpsertPlayerError
	}
	return m.LeaderboardRepository.UpsertPlayer(ctx, name, appearance, incrementWins)
}

func (m *Repository) GetPlayer(ctx context.Context, name string) (*models.LeaderboardEntry, error) {
	if m.GetPlayerError != nil {
		return nil, m.GetPlayerError
	}
	return m.LeaderboardRepository.GetPlayer(ctx, name)
}

func (m *Repository) TopPlayers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if m.TopPlayersError != nil {
		return nil, m.TopPlayersError
	}
	return m.LeaderboardRepository.TopPlayers(ctx, limit)
}
