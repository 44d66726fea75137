package game

import (
	"github.com/velocitygame/velocity-server/internal/models"
)

// FindMatch places the requester in an open human room, or provisions a new
// room with a synthetic opponent and an automatic round start so nobody waits
// on a host action.
func (s *Service) FindMatch(playerID string, req models.FindMatchRequest) {
	if room := s.registry.FindOpen(); room != nil {
		s.JoinRoom(playerID, models.JoinRoomRequest{
			Code:   room.Code(),
			Name:   req.Name,
			Avatar: req.Avatar,
			Frame:  req.Frame,
		})
		return
	}

	host := &models.Player{
		ID:         playerID,
		Name:       req.Name,
		Appearance: models.Appearance{Avatar: req.Avatar, Frame: req.Frame},
	}
	room := s.registry.Create(DefaultConfig(), host)

	room.mu.Lock()
	room.addPlayer(newBotPlayer())
	roster := room.rosterInfo()
	room.mu.Unlock()

	s.broadcast.BindRoom(playerID, room.code)
	s.broadcast.ToPlayer(playerID, EventRoomJoined, models.RoomJoined{
		Code:    room.code,
		IsHost:  true,
		Players: roster,
	})
	s.log.Info("Matchmade room provisioned", "code", room.code, "player", req.Name)

	code := room.code
	s.clock.Schedule(LobbyAutoStart, func() {
		s.onLobbyAutoStart(code)
	})
}

// onLobbyAutoStart kicks off a matchmade room after the lobby wait, unless a
// faster event already moved it on or removed it.
func (s *Service) onLobbyAutoStart(roomCode string) {
	room, ok := s.registry.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status != StatusLobby {
		return
	}
	s.beginRoundLocked(room)
}
