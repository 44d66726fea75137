package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velocitygame/velocity-server/internal/models"
)

var botNames = []string{"RoboVeloz", "Chispas", "Turbina", "Rayo-9", "Circuito"}

// newBotPlayer builds an autonomous room participant with a synthetic id
func newBotPlayer() *models.Player {
	return &models.Player{
		ID:    "bot-" + uuid.NewString(),
		Name:  botNames[rand.Intn(len(botNames))],
		IsBot: true,
	}
}

// armBotLocked schedules the bot's next move with a randomized human-like
// think time, replacing any pending timer. Caller holds the room lock.
func (s *Service) armBotLocked(room *Room) {
	room.stopBotTimer()

	thinkTime := BotThinkMin + time.Duration(rand.Int63n(int64(BotThinkMax-BotThinkMin)))
	round := room.currentRound
	room.botTimer = s.clock.Schedule(thinkTime, func() {
		s.onBotThinkTimeOver(room.code, round)
	})
	s.log.Debug("Bot armed", "code", room.code, "round", round, "delay", thinkTime)
}

// onBotThinkTimeOver fires when the bot "finishes writing". A human event
// may have already moved the round on, so the room state and round number
// are re-checked before acting.
func (s *Service) onBotThinkTimeOver(roomCode string, round int) {
	room, ok := s.registry.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status != StatusPlaying || room.panicActive || room.currentRound != round {
		return
	}
	room.botTimer = nil

	room.submissions[room.botID] = synthesizeWords(room.categories, room.letter)
	s.log.Info("Bot submitted", "code", room.code, "round", round)
	s.signalTimeUpLocked(room)
}

// backfillBotLocked makes sure the bot never scores as empty: if a human
// ended the round before the bot's timer fired, its words are synthesized
// retroactively. Caller holds the room lock.
func (s *Service) backfillBotLocked(room *Room) {
	if !room.hasBot {
		return
	}
	if _, ok := room.submissions[room.botID]; ok {
		return
	}
	room.submissions[room.botID] = synthesizeWords(room.categories, room.letter)
	s.log.Debug("Bot submission back-filled", "code", room.code, "round", room.currentRound)
}

// synthesizeWords derives one word per category from the category name and
// the round letter, so it always passes the first-letter rule.
func synthesizeWords(categories []string, letter string) map[string]string {
	words := make(map[string]string, len(categories))
	for _, category := range categories {
		words[category] = fmt.Sprintf("%s%s", letter, strings.ToLower(category))
	}
	return words
}
