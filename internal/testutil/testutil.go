package testutil

import (
	"testing"

	"github.com/velocitygame/velocity-server/internal/repository"
)

// NewTestRepository creates an in-memory repository for testing and cleans
// it up when the test finishes.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}
