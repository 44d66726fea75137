package models

import "encoding/json"

// Appearance is the cosmetic customization a player carries into a room
type Appearance struct {
	Avatar string `json:"avatar"`
	Frame  string `json:"frame"`
}

// Player is a participant in a room. The ID is the connection id assigned at
// the websocket upgrade, or a synthetic id for autonomous players.
type Player struct {
	ID         string
	Name       string
	Appearance Appearance
	RoundScore int
	MatchWins  int
	IsBot      bool
}

// PlayerInfo is the wire representation of a room member
type PlayerInfo struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Frame  string `json:"frame,omitempty"`
	IsBot  bool   `json:"isBot,omitempty"`
}

// Info returns the wire representation of p
func (p *Player) Info() PlayerInfo {
	return PlayerInfo{
		Name:   p.Name,
		Avatar: p.Appearance.Avatar,
		Frame:  p.Appearance.Frame,
		IsBot:  p.IsBot,
	}
}

// LeaderboardEntry is a persisted player record keyed by display name
type LeaderboardEntry struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Frame  string `json:"frame,omitempty"`
	Wins   int    `json:"wins"`
}

// WSMessage is an outbound websocket envelope
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ClientMessage is an inbound websocket envelope; the payload is decoded
// per message type by the gateway
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound payloads

type CreateRoomRequest struct {
	PlayerName  string `json:"playerName"`
	Avatar      string `json:"avatar,omitempty"`
	Frame       string `json:"frame,omitempty"`
	Rounds      int    `json:"rounds,omitempty"`
	Time        int    `json:"time,omitempty"`
	ScoringMode string `json:"scoringMode,omitempty"`
	Password    string `json:"password,omitempty"`
}

type JoinRoomRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Frame    string `json:"frame,omitempty"`
	Password string `json:"password,omitempty"`
}

type FindMatchRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Frame  string `json:"frame,omitempty"`
}

type RoomRef struct {
	RoomCode string `json:"roomCode"`
}

type SubmitWordsRequest struct {
	RoomCode string            `json:"roomCode"`
	Words    map[string]string `json:"words"`
}

// SubmitVoteRequest carries verdicts keyed by the target's display name,
// then by category. Verdicts are "valid" or "invalid".
type SubmitVoteRequest struct {
	RoomCode string                       `json:"roomCode"`
	Votes    map[string]map[string]string `json:"votes"`
}

type ChatMessage struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Text       string `json:"message"`
}

type Reaction struct {
	RoomCode string `json:"roomCode"`
	Emoji    string `json:"emoji"`
}

// Outbound payloads

type RoomJoined struct {
	Code    string       `json:"code"`
	IsHost  bool         `json:"isHost"`
	Players []PlayerInfo `json:"players"`
}

type RoundStart struct {
	Letter      string   `json:"letter"`
	Categories  []string `json:"categories"`
	Round       int      `json:"round"`
	TotalRounds int      `json:"totalRounds"`
	TimeSeconds int      `json:"time"`
}

type RankingEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type PodiumEntry struct {
	Name string `json:"name"`
	Wins int    `json:"wins"`
}
