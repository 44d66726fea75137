package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/velocitygame/velocity-server/internal/logger"
	"github.com/velocitygame/velocity-server/internal/models"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 4

// Registry owns the mapping from room code to Room. It is the only holder of
// room references; everything else looks rooms up by code.
type Registry struct {
	log   logger.Logger
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty Registry
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		log:   log,
		rooms: make(map[string]*Room),
	}
}

// Create allocates a fresh unique code and registers a new room with host as
// its first player.
func (reg *Registry) Create(cfg Config, host *models.Player) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := reg.newCode()
	room := newRoom(code, cfg, host)
	reg.rooms[code] = room
	reg.log.Info("Room created", "code", code, "host", host.Name)
	return room
}

// Get looks up a room by code
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[code]
	return room, ok
}

// Remove deletes a room from the registry
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.rooms[code]; ok {
		delete(reg.rooms, code)
		reg.log.Info("Room removed", "code", code)
	}
}

// Count returns the number of live rooms
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// FindOpen scans for a joinable room for matchmaking: still in the lobby,
// under capacity, not password protected and without an autonomous player.
func (reg *Registry) FindOpen() *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	for _, room := range reg.rooms {
		room.mu.Lock()
		open := room.status == StatusLobby &&
			len(room.players) < room.config.MaxPlayers &&
			room.config.Password == "" &&
			!room.hasBot
		room.mu.Unlock()
		if open {
			return room
		}
	}
	return nil
}

// SweepIdle removes rooms with no activity for longer than ttl and returns
// how many were reaped. Pending bot timers are cancelled so no stale callback
// can act on a removed room.
func (reg *Registry) SweepIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reaped := 0
	for code, room := range reg.rooms {
		room.mu.Lock()
		idle := room.lastActivity.Before(cutoff)
		if idle {
			room.stopBotTimer()
		}
		room.mu.Unlock()

		if idle {
			delete(reg.rooms, code)
			reaped++
			reg.log.Info("Idle room reaped", "code", code)
		}
	}
	return reaped
}

// StartSweeper runs the idle sweep on a ticker until ctx is cancelled
func (reg *Registry) StartSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			reg.log.Info("Room sweeper stopped")
			return
		case <-ticker.C:
			reg.SweepIdle(ttl)
		}
	}
}

// newCode draws 4-char codes until one is unused. Codes are short-lived, so
// collisions just retry. Caller holds the write lock.
func (reg *Registry) newCode() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}
