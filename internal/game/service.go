package game

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/velocitygame/velocity-server/internal/errors"
	"github.com/velocitygame/velocity-server/internal/logger"
	"github.com/velocitygame/velocity-server/internal/models"
)

// Outbound event types
const (
	EventRoomJoined      = "room_joined"
	EventUpdatePlayers   = "update_players"
	EventRoundStart      = "round_start"
	EventPanicMode       = "panic_mode"
	EventStartJudging    = "start_judging"
	EventGameRanking     = "game_ranking"
	EventMatchOver       = "match_over"
	EventError           = "error_msg"
	EventReceiveMessage  = "receive_message"
	EventReceiveReaction = "receive_reaction"
)

// Broadcaster delivers outbound events to clients. Implemented by the
// websocket hub; tests use a recording fake.
type Broadcaster interface {
	ToRoom(roomCode, msgType string, payload any)
	ToPlayer(playerID, msgType string, payload any)
	BindRoom(playerID, roomCode string)
}

// Leaderboard is the persistence collaborator. Upserts are idempotent merges
// and are never read synchronously by gameplay.
type Leaderboard interface {
	UpsertPlayer(ctx context.Context, name string, appearance models.Appearance, incrementWins bool) error
}

// Service drives every room through its round lifecycle. All state mutations
// happen inside event handlers (player actions or timer expirations) that
// lock the room, run to completion and unlock.
type Service struct {
	log         logger.Logger
	registry    *Registry
	clock       Scheduler
	broadcast   Broadcaster
	leaderboard Leaderboard
}

// NewService wires the round state machine to its collaborators
func NewService(log logger.Logger, registry *Registry, clock Scheduler, broadcast Broadcaster, leaderboard Leaderboard) *Service {
	return &Service{
		log:         log,
		registry:    registry,
		clock:       clock,
		broadcast:   broadcast,
		leaderboard: leaderboard,
	}
}

// toClientMessage converts a service error to the client-facing error_msg
// text. Unclassified errors never leak internals to players.
func toClientMessage(err error) string {
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "Algo salió mal."
}

// reject reports a failed action to the requesting player only
func (s *Service) reject(playerID string, err error) {
	s.log.Debug("Player action rejected", "player", playerID, "kind", errors.KindOf(err), "error", err)
	s.broadcast.ToPlayer(playerID, EventError, toClientMessage(err))
}

// Registry exposes the room registry (for handlers that only need lookups)
func (s *Service) Registry() *Registry {
	return s.registry
}

// CreateRoom creates a room with the requester as host and first player
func (s *Service) CreateRoom(playerID string, req models.CreateRoomRequest) {
	cfg := DefaultConfig()
	if req.Rounds > 0 {
		cfg.TotalRounds = req.Rounds
	}
	if req.Time > 0 {
		cfg.RoundTimeSeconds = req.Time
	}
	if mode := ScoringMode(strings.ToUpper(req.ScoringMode)); mode == ScoringVote {
		cfg.Scoring = mode
	}
	cfg.Password = req.Password

	host := &models.Player{
		ID:         playerID,
		Name:       req.PlayerName,
		Appearance: models.Appearance{Avatar: req.Avatar, Frame: req.Frame},
	}
	room := s.registry.Create(cfg, host)

	s.broadcast.BindRoom(playerID, room.code)
	s.broadcast.ToPlayer(playerID, EventRoomJoined, models.RoomJoined{
		Code:    room.code,
		IsHost:  true,
		Players: room.rosterInfo(),
	})
}

// JoinRoom adds the requester to an existing room and broadcasts the updated
// roster. Failures are reported to the caller only, via error_msg.
func (s *Service) JoinRoom(playerID string, req models.JoinRoomRequest) {
	code := strings.ToUpper(req.Code)
	room, ok := s.registry.Get(code)
	if !ok {
		s.reject(playerID, errors.NotFound("La sala no existe o ha cerrado."))
		return
	}

	player := &models.Player{
		ID:         playerID,
		Name:       req.Name,
		Appearance: models.Appearance{Avatar: req.Avatar, Frame: req.Frame},
	}

	room.mu.Lock()
	if len(room.players) >= room.config.MaxPlayers {
		room.mu.Unlock()
		s.reject(playerID, errors.Full("La sala está llena."))
		return
	}
	if room.config.Password != "" && room.config.Password != req.Password {
		room.mu.Unlock()
		s.reject(playerID, errors.NotAuthorized("Contraseña incorrecta."))
		return
	}
	room.addPlayer(player)
	room.touch()
	roster := room.rosterInfo()
	room.mu.Unlock()

	s.broadcast.BindRoom(playerID, code)
	s.broadcast.ToPlayer(playerID, EventRoomJoined, models.RoomJoined{
		Code:    code,
		IsHost:  false,
		Players: roster,
	})
	s.broadcast.ToRoom(code, EventUpdatePlayers, roster)
	s.log.Info("Player joined room", "code", code, "player", req.Name)
}

// StartRound begins the match. Host-only; a non-host request changes nothing
// and broadcasts nothing.
func (s *Service) StartRound(playerID, roomCode string) {
	room, ok := s.registry.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.hostID != playerID {
		s.log.Debug("Ignored start_round", "code", roomCode, "player", playerID,
			"error", errors.NotAuthorized("requester is not the host"))
		return
	}
	if room.status != StatusLobby {
		s.log.Debug("Ignored start_round", "code", roomCode,
			"error", errors.InvalidStatef("room is %s", room.status))
		return
	}
	s.beginRoundLocked(room)
}

// SignalTimeUp opens the panic window: a short grace period for clients to
// finalize answers, after which the round is judged. Any player (or the bot)
// may trigger it; duplicate or late signals are no-ops.
func (s *Service) SignalTimeUp(playerID, roomCode string) {
	room, ok := s.registry.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	s.signalTimeUpLocked(room)
}

func (s *Service) signalTimeUpLocked(room *Room) {
	if room.panicActive || room.status != StatusPlaying {
		return
	}

	room.panicActive = true
	room.status = StatusPanic
	room.stopBotTimer()
	room.touch()

	s.broadcast.ToRoom(room.code, EventPanicMode, struct{}{})
	s.log.Info("Panic window opened", "code", room.code, "round", room.currentRound)

	round := room.currentRound
	s.clock.Schedule(PanicDuration, func() {
		s.onPanicExpired(room.code, round)
	})
}

// onPanicExpired fires after the panic grace period. The room may have been
// removed or re-advanced by a faster event, so everything is re-checked.
func (s *Service) onPanicExpired(roomCode string, round int) {
	room, ok := s.registry.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status != StatusPanic || room.currentRound != round {
		return
	}

	if room.config.Scoring == ScoringVote {
		s.startJudgingLocked(room)
		return
	}
	s.finalizeRoundLocked(room)
}

// SubmitWords records a player's answers for the current round. Resubmission
// overwrites. Accepted while the round is live (PLAYING or PANIC) only.
func (s *Service) SubmitWords(playerID, roomCode string, words map[string]string) {
	room, ok := s.registry.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status != StatusPlaying && room.status != StatusPanic {
		s.reject(playerID, errors.InvalidState("No se pueden enviar palabras ahora."))
		return
	}
	player, member := room.players[playerID]
	if !member {
		return
	}

	room.submissions[playerID] = words
	room.touch()
	if room.hasBot && !player.IsBot {
		room.stopBotTimer()
	}

	if !room.allHumansSubmitted() {
		return
	}

	if room.config.Scoring == ScoringVote {
		s.startJudgingLocked(room)
		return
	}
	s.finalizeRoundLocked(room)
}

// SubmitVote records one voter's verdicts during the judging phase. Vote
// payloads are keyed by the target's display name; they are resolved to
// connection ids here so the judge works on stable identifiers.
func (s *Service) SubmitVote(playerID, roomCode string, votes map[string]map[string]string) {
	room, ok := s.registry.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status != StatusJudging {
		s.reject(playerID, errors.InvalidState("La votación no está abierta."))
		return
	}
	if _, member := room.players[playerID]; !member {
		return
	}
	if _, voted := room.votes[playerID]; voted {
		return // one vote per voter
	}

	resolved := make(map[string]map[string]string, len(votes))
	for targetName, verdicts := range votes {
		target := room.playerByName(targetName)
		if target == nil {
			continue
		}
		resolved[target.ID] = verdicts
	}
	room.votes[playerID] = resolved
	room.touch()

	if room.allHumansVoted() {
		s.finalizeRoundLocked(room)
	}
}

// SendMessage relays a chat message to the room; no state effect
func (s *Service) SendMessage(roomCode, sender, text string) {
	if room, ok := s.registry.Get(roomCode); ok {
		room.mu.Lock()
		room.touch()
		room.mu.Unlock()
		s.broadcast.ToRoom(roomCode, EventReceiveMessage, map[string]string{
			"sender": sender,
			"text":   text,
		})
	}
}

// SendReaction relays an emoji reaction to the room; no state effect
func (s *Service) SendReaction(roomCode, emoji string) {
	if _, ok := s.registry.Get(roomCode); ok {
		s.broadcast.ToRoom(roomCode, EventReceiveReaction, map[string]string{
			"emoji": emoji,
		})
	}
}

// beginRoundLocked starts the next round: new letter, new categories, scores
// reset, bot armed. Caller holds the room lock.
func (s *Service) beginRoundLocked(room *Room) {
	room.currentRound++
	room.letter = string(roundAlphabet[rand.Intn(len(roundAlphabet))])
	room.categories = drawCategories(CategoriesPerRound)
	room.panicActive = false
	room.judged = false
	room.submissions = make(map[string]map[string]string)
	room.votes = make(map[string]map[string]map[string]string)
	for _, p := range room.players {
		p.RoundScore = 0
	}
	room.status = StatusPlaying
	room.touch()

	if room.hasBot {
		s.armBotLocked(room)
	}

	s.broadcast.ToRoom(room.code, EventRoundStart, models.RoundStart{
		Letter:      room.letter,
		Categories:  room.categories,
		Round:       room.currentRound,
		TotalRounds: room.config.TotalRounds,
		TimeSeconds: room.config.RoundTimeSeconds,
	})
	s.log.Info("Round started", "code", room.code, "round", room.currentRound, "letter", room.letter)
}

// startJudgingLocked moves a VOTE room into the peer-judging phase and shows
// everyone the full word set. Caller holds the room lock.
func (s *Service) startJudgingLocked(room *Room) {
	if room.status == StatusJudging {
		return
	}
	room.status = StatusJudging
	room.stopBotTimer()
	s.backfillBotLocked(room)
	room.touch()

	// name -> category -> word; ids are not exposed to clients
	sheet := make(map[string]map[string]string, len(room.submissions))
	for playerID, words := range room.submissions {
		if p, ok := room.players[playerID]; ok {
			sheet[p.Name] = words
		}
	}
	s.broadcast.ToRoom(room.code, EventStartJudging, sheet)
	s.log.Info("Judging started", "code", room.code, "round", room.currentRound)
}

// finalizeRoundLocked judges the round exactly once, broadcasts the ranking,
// attributes round wins and advances or ends the match. Caller holds the
// room lock.
func (s *Service) finalizeRoundLocked(room *Room) {
	if room.judged {
		return
	}
	room.judged = true
	room.stopBotTimer()
	s.backfillBotLocked(room)

	var scores map[string]int
	if room.config.Scoring == ScoringVote {
		scores = ScoreVote(room.submissions, room.votes, room.letter, len(room.players))
	} else {
		scores = ScoreDirect(room.submissions, room.letter)
	}

	for _, p := range room.players {
		p.RoundScore = scores[p.ID] // players without submissions score 0
	}

	ranking := make([]models.RankingEntry, 0, len(room.players))
	for _, p := range room.roster() {
		ranking = append(ranking, models.RankingEntry{Name: p.Name, Score: p.RoundScore})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})

	// Every player tied at the round's maximum positive score gets a win.
	maxScore := 0
	for _, p := range room.players {
		if p.RoundScore > maxScore {
			maxScore = p.RoundScore
		}
	}
	if maxScore > 0 {
		for _, p := range room.players {
			if p.RoundScore == maxScore {
				p.MatchWins++
			}
		}
	}

	room.submissions = make(map[string]map[string]string)
	room.votes = make(map[string]map[string]map[string]string)
	room.status = StatusScored
	room.touch()

	s.broadcast.ToRoom(room.code, EventGameRanking, ranking)
	s.log.Info("Round scored", "code", room.code, "round", room.currentRound, "top", maxScore)

	if room.currentRound < room.config.TotalRounds {
		round := room.currentRound
		s.clock.Schedule(RankingPause, func() {
			s.onRankingPauseOver(room.code, round)
		})
		return
	}
	s.endMatchLocked(room)
}

// onRankingPauseOver advances to the next round after the ranking display,
// re-validating the room first.
func (s *Service) onRankingPauseOver(roomCode string, round int) {
	room, ok := s.registry.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status != StatusScored || room.currentRound != round {
		return
	}
	s.beginRoundLocked(room)
}

// endMatchLocked computes the podium, persists the winner and tears down
// bot-assisted rooms. Caller holds the room lock.
func (s *Service) endMatchLocked(room *Room) {
	room.status = StatusMatchOver

	podium := make([]models.PodiumEntry, 0, len(room.players))
	for _, p := range room.roster() {
		podium = append(podium, models.PodiumEntry{Name: p.Name, Wins: p.MatchWins})
	}
	sort.SliceStable(podium, func(i, j int) bool {
		return podium[i].Wins > podium[j].Wins
	})

	s.broadcast.ToRoom(room.code, EventMatchOver, podium)

	var winner *models.Player
	for _, p := range room.roster() {
		if winner == nil || p.MatchWins > winner.MatchWins {
			winner = p
		}
	}
	s.log.Info("Match over", "code", room.code, "winner", winner.Name, "wins", winner.MatchWins)

	// Leaderboard writes are best effort and never gate gameplay.
	if !winner.IsBot {
		name := winner.Name
		appearance := winner.Appearance
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.leaderboard.UpsertPlayer(ctx, name, appearance, true); err != nil {
				s.log.Warn("Leaderboard upsert failed", "player", name, "error", err)
			}
		}()
	}

	if room.hasBot {
		code := room.code
		go s.registry.Remove(code)
	}
}

// drawCategories deals n distinct categories by shuffling the full pool
func drawCategories(n int) []string {
	pool := make([]string, len(allCategories))
	copy(pool, allCategories)
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:n]
}
