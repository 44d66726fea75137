package game

import (
	"sync"
	"time"

	"github.com/velocitygame/velocity-server/internal/models"
)

// Status is the round lifecycle state of a room
type Status int

const (
	StatusLobby Status = iota
	StatusPlaying
	StatusPanic
	StatusJudging
	StatusScored
	StatusMatchOver
)

func (s Status) String() string {
	switch s {
	case StatusLobby:
		return "LOBBY"
	case StatusPlaying:
		return "PLAYING"
	case StatusPanic:
		return "PANIC"
	case StatusJudging:
		return "JUDGING"
	case StatusScored:
		return "SCORED"
	case StatusMatchOver:
		return "MATCH_OVER"
	default:
		return "UNKNOWN"
	}
}

// ScoringMode selects how a round is judged
type ScoringMode string

const (
	ScoringDirect ScoringMode = "DIRECT"
	ScoringVote   ScoringMode = "VOTE"
)

// Config is the per-room match configuration
type Config struct {
	TotalRounds      int
	RoundTimeSeconds int
	Scoring          ScoringMode
	MaxPlayers       int
	Password         string
}

// DefaultConfig returns the configuration used when a client omits options
func DefaultConfig() Config {
	return Config{
		TotalRounds:      DefaultTotalRounds,
		RoundTimeSeconds: DefaultRoundTime,
		Scoring:          ScoringDirect,
		MaxPlayers:       DefaultMaxPlayers,
	}
}

// Room owns all state for one match. All fields below the mutex are guarded
// by it; every event handler (player action or timer expiry) locks the room,
// runs to completion and unlocks.
type Room struct {
	mu sync.Mutex

	code   string
	hostID string
	status Status
	config Config

	players map[string]*models.Player
	order   []string // join order, for stable rosters

	currentRound int
	letter       string
	categories   []string
	panicActive  bool

	hasBot   bool
	botID    string
	botTimer TimerHandle

	// Ephemeral per-round state, deleted once the round is scored.
	// submissions: playerID -> category -> word
	// votes:       voterID -> targetID -> category -> verdict
	submissions map[string]map[string]string
	votes       map[string]map[string]map[string]string
	judged      bool

	lastActivity time.Time
}

func newRoom(code string, cfg Config, host *models.Player) *Room {
	r := &Room{
		code:         code,
		hostID:       host.ID,
		status:       StatusLobby,
		config:       cfg,
		players:      make(map[string]*models.Player),
		submissions:  make(map[string]map[string]string),
		votes:        make(map[string]map[string]map[string]string),
		lastActivity: time.Now(),
	}
	r.addPlayer(host)
	return r
}

// Code returns the room's join code
func (r *Room) Code() string {
	return r.code
}

// addPlayer appends p to the roster. Caller holds the lock (or the room is
// not yet published).
func (r *Room) addPlayer(p *models.Player) {
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	if p.IsBot {
		r.hasBot = true
		r.botID = p.ID
	}
}

// roster returns players in join order
func (r *Room) roster() []*models.Player {
	out := make([]*models.Player, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) rosterInfo() []models.PlayerInfo {
	players := r.roster()
	out := make([]models.PlayerInfo, 0, len(players))
	for _, p := range players {
		out = append(out, p.Info())
	}
	return out
}

// playerByName resolves a display name to a room member. Returns nil when the
// name is unknown.
func (r *Room) playerByName(name string) *models.Player {
	for _, id := range r.order {
		if p, ok := r.players[id]; ok && p.Name == name {
			return p
		}
	}
	return nil
}

// humanCount is the number of non-autonomous members
func (r *Room) humanCount() int {
	n := 0
	for _, p := range r.players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// allHumansSubmitted reports whether every non-bot member has words recorded
// for the current round. The bot is back-filled before judging, so it never
// blocks completion.
func (r *Room) allHumansSubmitted() bool {
	for _, p := range r.players {
		if p.IsBot {
			continue
		}
		if _, ok := r.submissions[p.ID]; !ok {
			return false
		}
	}
	return true
}

// allHumansVoted reports whether every non-bot member has cast a vote
func (r *Room) allHumansVoted() bool {
	for _, p := range r.players {
		if p.IsBot {
			continue
		}
		if _, ok := r.votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// stopBotTimer cancels the pending bot timer, if any. At most one non-nil
// handle exists per room; it must be stopped before a new one is armed and
// before the room leaves PLAYING.
func (r *Room) stopBotTimer() {
	if r.botTimer != nil {
		r.botTimer.Stop()
		r.botTimer = nil
	}
}

func (r *Room) touch() {
	r.lastActivity = time.Now()
}
