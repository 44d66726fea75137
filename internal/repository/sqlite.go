package repository

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/velocitygame/velocity-server/internal/models"
)

// Repository provides data access methods backed by SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new Repository and runs migrations
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, err
	}
	return repo, nil
}

// NewWithDB wraps an existing database handle (used by tests)
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			name TEXT PRIMARY KEY,
			avatar TEXT DEFAULT '',
			frame TEXT DEFAULT '',
			wins INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_wins ON players(wins DESC)`,
	}

	for _, m := range migrations {
		if _, err := r.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPlayer inserts or merges a player record. Empty appearance fields
// never overwrite stored ones; the win counter grows by one when
// incrementWins is set.
func (r *Repository) UpsertPlayer(ctx context.Context, name string, appearance models.Appearance, incrementWins bool) error {
	winDelta := 0
	if incrementWins {
		winDelta = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO players (name, avatar, frame, wins) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			avatar = CASE WHEN excluded.avatar != '' THEN excluded.avatar ELSE players.avatar END,
			frame = CASE WHEN excluded.frame != '' THEN excluded.frame ELSE players.frame END,
			wins = players.wins + excluded.wins,
			updated_at = CURRENT_TIMESTAMP`,
		name, appearance.Avatar, appearance.Frame, winDelta)
	return err
}

// GetPlayer returns one player record, or ErrNotFound
func (r *Repository) GetPlayer(ctx context.Context, name string) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT name, avatar, frame, wins FROM players WHERE name = ?`, name).
		Scan(&entry.Name, &entry.Avatar, &entry.Frame, &entry.Wins)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// TopPlayers returns up to limit records ordered by wins descending
func (r *Repository) TopPlayers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, avatar, frame, wins FROM players ORDER BY wins DESC, name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.Name, &entry.Avatar, &entry.Frame, &entry.Wins); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
