package game

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/velocitygame/velocity-server/internal/errors"
	"github.com/velocitygame/velocity-server/internal/logger"
	"github.com/velocitygame/velocity-server/internal/models"
)

// fakeTimer is a manually fired TimerHandle
type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

// fakeClock records scheduled callbacks; tests fire them on demand
type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) Schedule(d time.Duration, fn func()) TimerHandle {
	t := &fakeTimer{d: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// fire runs the first pending timer matching pred and reports whether one
// was found
func (c *fakeClock) fire(pred func(d time.Duration) bool) bool {
	for _, t := range c.timers {
		if t.fired || t.stopped || !pred(t.d) {
			continue
		}
		t.fired = true
		t.fn()
		return true
	}
	return false
}

func exactly(d time.Duration) func(time.Duration) bool {
	return func(got time.Duration) bool { return got == d }
}

func botThink(d time.Duration) bool {
	return d >= BotThinkMin && d < BotThinkMax
}

// pendingCount counts timers that are neither fired nor stopped
func (c *fakeClock) pendingCount(pred func(d time.Duration) bool) int {
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped && pred(t.d) {
			n++
		}
	}
	return n
}

type sentEvent struct {
	scope   string // "room" or "player"
	target  string
	msgType string
	payload any
}

// fakeBroadcast records every outbound event
type fakeBroadcast struct {
	events []sentEvent
}

func (b *fakeBroadcast) ToRoom(roomCode, msgType string, payload any) {
	b.events = append(b.events, sentEvent{"room", roomCode, msgType, payload})
}

func (b *fakeBroadcast) ToPlayer(playerID, msgType string, payload any) {
	b.events = append(b.events, sentEvent{"player", playerID, msgType, payload})
}

func (b *fakeBroadcast) BindRoom(playerID, roomCode string) {}

func (b *fakeBroadcast) count(msgType string) int {
	n := 0
	for _, e := range b.events {
		if e.msgType == msgType {
			n++
		}
	}
	return n
}

func (b *fakeBroadcast) last(msgType string) (sentEvent, bool) {
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].msgType == msgType {
			return b.events[i], true
		}
	}
	return sentEvent{}, false
}

type upsertCall struct {
	name      string
	increment bool
}

// fakeLeaderboard signals upserts on a channel since they run asynchronously
type fakeLeaderboard struct {
	upserts chan upsertCall
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{upserts: make(chan upsertCall, 8)}
}

func (f *fakeLeaderboard) UpsertPlayer(ctx context.Context, name string, appearance models.Appearance, incrementWins bool) error {
	f.upserts <- upsertCall{name: name, increment: incrementWins}
	return nil
}

// setupService builds a Service with all fake collaborators
func setupService(t *testing.T) (*Service, *fakeClock, *fakeBroadcast, *fakeLeaderboard) {
	t.Helper()
	log := logger.NewWithLevel(logger.ParseLevel("error"))
	clock := &fakeClock{}
	broadcast := &fakeBroadcast{}
	leaderboard := newFakeLeaderboard()
	svc := NewService(log, NewRegistry(log), clock, broadcast, leaderboard)
	return svc, clock, broadcast, leaderboard
}

// createTwoPlayerRoom creates a room with a host and one joined guest and
// returns it
func createTwoPlayerRoom(t *testing.T, svc *Service, broadcast *fakeBroadcast) *Room {
	t.Helper()
	svc.CreateRoom("host-1", models.CreateRoomRequest{PlayerName: "Ana"})
	joined, ok := broadcast.last(EventRoomJoined)
	if !ok {
		t.Fatal("expected room_joined after create_room")
	}
	code := joined.payload.(models.RoomJoined).Code

	svc.JoinRoom("guest-1", models.JoinRoomRequest{Code: code, Name: "Berta"})
	room, ok := svc.Registry().Get(code)
	if !ok {
		t.Fatalf("room %s not registered", code)
	}
	return room
}

// forceLetter pins the round letter so word submissions are predictable
func forceLetter(room *Room, letter string) {
	room.mu.Lock()
	room.letter = letter
	room.mu.Unlock()
}

func TestStartRound_HostOnly(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)

	svc.StartRound("guest-1", room.Code())
	if broadcast.count(EventRoundStart) != 0 {
		t.Fatal("non-host start_round must not broadcast round_start")
	}

	svc.StartRound("host-1", room.Code())
	event, ok := broadcast.last(EventRoundStart)
	if !ok {
		t.Fatal("host start_round must broadcast round_start")
	}

	start := event.payload.(models.RoundStart)
	if start.Round != 1 {
		t.Errorf("round = %d, want 1", start.Round)
	}
	if len(start.Categories) != CategoriesPerRound {
		t.Errorf("categories = %d, want %d", len(start.Categories), CategoriesPerRound)
	}
	if !strings.Contains(roundAlphabet, start.Letter) {
		t.Errorf("letter %q not in the round alphabet", start.Letter)
	}
	seen := map[string]bool{}
	for _, c := range start.Categories {
		if seen[c] {
			t.Errorf("category %q dealt twice", c)
		}
		seen[c] = true
	}
}

func TestStartRound_SecondCallIsNoOp(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)

	svc.StartRound("host-1", room.Code())
	svc.StartRound("host-1", room.Code())

	if got := broadcast.count(EventRoundStart); got != 1 {
		t.Errorf("round_start broadcast %d times, want 1", got)
	}
}

func TestSignalTimeUp_Idempotent(t *testing.T) {
	svc, clock, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)
	svc.StartRound("host-1", room.Code())

	svc.SignalTimeUp("guest-1", room.Code())
	svc.SignalTimeUp("host-1", room.Code())

	if got := broadcast.count(EventPanicMode); got != 1 {
		t.Errorf("panic_mode broadcast %d times, want 1", got)
	}
	if got := clock.pendingCount(exactly(PanicDuration)); got != 1 {
		t.Errorf("%d pending panic timers, want 1", got)
	}
}

func TestSubmitWords_RejectedInLobby(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)

	svc.SubmitWords("host-1", room.Code(), map[string]string{"COLOR": "Azul"})

	if _, ok := broadcast.last(EventError); !ok {
		t.Error("expected error_msg for submission outside a live round")
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.submissions) != 0 {
		t.Error("lobby submission must not be recorded")
	}
}

func TestDirectMode_AllSubmittedFinalizesWithTie(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)
	svc.StartRound("host-1", room.Code())
	forceLetter(room, "A")

	svc.SubmitWords("host-1", room.Code(), map[string]string{"COLOR": "Azul"})
	if broadcast.count(EventGameRanking) != 0 {
		t.Fatal("round must not finalize before everyone submitted")
	}

	svc.SubmitWords("guest-1", room.Code(), map[string]string{"COLOR": "Amarillo"})
	event, ok := broadcast.last(EventGameRanking)
	if !ok {
		t.Fatal("round must finalize once all members submitted")
	}

	ranking := event.payload.([]models.RankingEntry)
	if len(ranking) != 2 {
		t.Fatalf("ranking has %d entries, want 2", len(ranking))
	}
	for _, entry := range ranking {
		if entry.Score != PointsPerWord {
			t.Errorf("%s scored %d, want %d", entry.Name, entry.Score, PointsPerWord)
		}
	}

	// Both players tied at the max positive score: both get the round win.
	room.mu.Lock()
	defer room.mu.Unlock()
	for _, p := range room.players {
		if p.MatchWins != 1 {
			t.Errorf("%s has %d match wins, want 1 (tie awards all)", p.Name, p.MatchWins)
		}
	}
	if room.status != StatusScored {
		t.Errorf("status = %v, want SCORED", room.status)
	}
	if len(room.submissions) != 0 {
		t.Error("submissions must be deleted once the round is scored")
	}
}

func TestResubmissionOverwrites(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)
	svc.StartRound("host-1", room.Code())
	forceLetter(room, "A")

	svc.SubmitWords("host-1", room.Code(), map[string]string{"COLOR": "Rojo"})
	svc.SubmitWords("host-1", room.Code(), map[string]string{"COLOR": "Azul"})
	svc.SubmitWords("guest-1", room.Code(), map[string]string{"COLOR": ""})

	event, _ := broadcast.last(EventGameRanking)
	ranking := event.payload.([]models.RankingEntry)
	if ranking[0].Name != "Ana" || ranking[0].Score != PointsPerWord {
		t.Errorf("resubmission must overwrite: top entry = %+v", ranking[0])
	}
}

func TestNoWinAwardedWhenMaxScoreIsZero(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)
	svc.StartRound("host-1", room.Code())
	forceLetter(room, "A")

	svc.SubmitWords("host-1", room.Code(), map[string]string{"COLOR": "Rojo"})
	svc.SubmitWords("guest-1", room.Code(), map[string]string{"COLOR": ""})

	room.mu.Lock()
	defer room.mu.Unlock()
	for _, p := range room.players {
		if p.MatchWins != 0 {
			t.Errorf("%s has %d match wins, want 0 when nobody scored", p.Name, p.MatchWins)
		}
	}
}

func TestPanicExpiry_FinalizesExactlyOnce(t *testing.T) {
	svc, clock, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)
	svc.StartRound("host-1", room.Code())
	forceLetter(room, "A")

	svc.SubmitWords("host-1", room.Code(), map[string]string{"COLOR": "Azul"})
	svc.SignalTimeUp("host-1", room.Code())

	if !clock.fire(exactly(PanicDuration)) {
		t.Fatal("expected a pending panic timer")
	}
	// A stale duplicate expiry must be a no-op.
	svc.onPanicExpired(room.Code(), 1)

	if got := broadcast.count(EventGameRanking); got != 1 {
		t.Errorf("game_ranking broadcast %d times, want 1", got)
	}
}

func TestRoundScoresResetOnNextRound(t *testing.T) {
	svc, clock, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)
	svc.StartRound("host-1", room.Code())
	forceLetter(room, "A")

	svc.SubmitWords("host-1", room.Code(), map[string]string{"COLOR": "Azul"})
	svc.SubmitWords("guest-1", room.Code(), map[string]string{"COLOR": "Abeto"})

	if !clock.fire(exactly(RankingPause)) {
		t.Fatal("expected a pending ranking-pause timer")
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.status != StatusPlaying {
		t.Fatalf("status = %v, want PLAYING after the pause", room.status)
	}
	if room.currentRound != 2 {
		t.Errorf("round = %d, want 2", room.currentRound)
	}
	for _, p := range room.players {
		if p.RoundScore != 0 {
			t.Errorf("%s round score = %d, want 0 on PLAYING entry", p.Name, p.RoundScore)
		}
	}
}

func TestVoteMode_MajorityVetoScoresZero(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)

	svc.CreateRoom("px", models.CreateRoomRequest{PlayerName: "Xavi", ScoringMode: "VOTE"})
	joined, _ := broadcast.last(EventRoomJoined)
	code := joined.payload.(models.RoomJoined).Code
	svc.JoinRoom("py", models.JoinRoomRequest{Code: code, Name: "Yago"})
	svc.JoinRoom("pz", models.JoinRoomRequest{Code: code, Name: "Zoe"})

	room, _ := svc.Registry().Get(code)
	svc.StartRound("px", code)
	forceLetter(room, "A")

	svc.SubmitWords("px", code, map[string]string{"ANIMAL": "Ardilla"})
	svc.SubmitWords("py", code, map[string]string{"ANIMAL": "Avestruz"})
	if broadcast.count(EventStartJudging) != 0 {
		t.Fatal("judging must not start before everyone submitted")
	}
	svc.SubmitWords("pz", code, map[string]string{"ANIMAL": "Anaconda"})

	judging, ok := broadcast.last(EventStartJudging)
	if !ok {
		t.Fatal("expected start_judging once all members submitted in VOTE mode")
	}
	sheet := judging.payload.(map[string]map[string]string)
	if sheet["Xavi"]["ANIMAL"] != "Ardilla" {
		t.Errorf("judging sheet missing Xavi's word: %v", sheet)
	}

	// Both peers reject Xavi's word: 2 >= ceil(3/2).
	svc.SubmitVote("py", code, map[string]map[string]string{"Xavi": {"ANIMAL": VerdictInvalid}})
	svc.SubmitVote("pz", code, map[string]map[string]string{"Xavi": {"ANIMAL": VerdictInvalid}})
	if broadcast.count(EventGameRanking) != 0 {
		t.Fatal("round must not finalize before everyone voted")
	}
	svc.SubmitVote("px", code, map[string]map[string]string{})

	event, ok := broadcast.last(EventGameRanking)
	if !ok {
		t.Fatal("expected game_ranking after all votes")
	}
	scores := map[string]int{}
	for _, entry := range event.payload.([]models.RankingEntry) {
		scores[entry.Name] = entry.Score
	}
	if scores["Xavi"] != 0 {
		t.Errorf("Xavi scored %d, want 0 after majority veto", scores["Xavi"])
	}
	if scores["Yago"] != PointsPerWord || scores["Zoe"] != PointsPerWord {
		t.Errorf("unvetoed words must score: %v", scores)
	}
}

func TestVoteMode_PanicExpiryOpensJudging(t *testing.T) {
	svc, clock, broadcast, _ := setupService(t)

	svc.CreateRoom("px", models.CreateRoomRequest{PlayerName: "Xavi", ScoringMode: "VOTE"})
	joined, _ := broadcast.last(EventRoomJoined)
	code := joined.payload.(models.RoomJoined).Code
	svc.JoinRoom("py", models.JoinRoomRequest{Code: code, Name: "Yago"})

	room, _ := svc.Registry().Get(code)
	svc.StartRound("px", code)
	forceLetter(room, "A")

	// Only one player submits before time runs out.
	svc.SubmitWords("px", code, map[string]string{"ANIMAL": "Ardilla"})
	svc.SignalTimeUp("px", code)

	if !clock.fire(exactly(PanicDuration)) {
		t.Fatal("expected a pending panic timer")
	}

	judging, ok := broadcast.last(EventStartJudging)
	if !ok {
		t.Fatal("panic expiry in a vote room must open judging")
	}
	sheet := judging.payload.(map[string]map[string]string)
	if sheet["Xavi"]["ANIMAL"] != "Ardilla" {
		t.Errorf("judging sheet missing the submitted word: %v", sheet)
	}
	if _, present := sheet["Yago"]; present {
		t.Errorf("non-submitter must not appear on the sheet: %v", sheet)
	}
	room.mu.Lock()
	if room.status != StatusJudging {
		t.Errorf("status = %v, want JUDGING", room.status)
	}
	room.mu.Unlock()

	// The non-submitter still has to vote before the round can close.
	svc.SubmitVote("px", code, map[string]map[string]string{})
	if broadcast.count(EventGameRanking) != 0 {
		t.Fatal("round must wait for every member's vote")
	}
	svc.SubmitVote("py", code, map[string]map[string]string{})
	if broadcast.count(EventGameRanking) != 1 {
		t.Error("round must finalize once the non-submitter voted")
	}
}

func TestVoteMode_OneVotePerVoter(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)

	svc.CreateRoom("px", models.CreateRoomRequest{PlayerName: "Xavi", ScoringMode: "VOTE"})
	joined, _ := broadcast.last(EventRoomJoined)
	code := joined.payload.(models.RoomJoined).Code
	svc.JoinRoom("py", models.JoinRoomRequest{Code: code, Name: "Yago"})

	room, _ := svc.Registry().Get(code)
	svc.StartRound("px", code)
	forceLetter(room, "A")

	svc.SubmitWords("px", code, map[string]string{"ANIMAL": "Ardilla"})
	svc.SubmitWords("py", code, map[string]string{"ANIMAL": "Avestruz"})

	// Yago votes twice; the second must not overwrite or double-count.
	svc.SubmitVote("py", code, map[string]map[string]string{"Xavi": {"ANIMAL": VerdictInvalid}})
	svc.SubmitVote("py", code, map[string]map[string]string{"Xavi": {"ANIMAL": VerdictValid}})

	room.mu.Lock()
	if len(room.votes) != 1 {
		t.Errorf("%d voters recorded, want 1", len(room.votes))
	}
	room.mu.Unlock()

	svc.SubmitVote("px", code, map[string]map[string]string{})
	if broadcast.count(EventGameRanking) != 1 {
		t.Error("round must finalize exactly once after all voters cast")
	}
}

func TestVoteBeforeJudgingRejected(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)
	room := createTwoPlayerRoom(t, svc, broadcast)
	svc.StartRound("host-1", room.Code())

	svc.SubmitVote("host-1", room.Code(), map[string]map[string]string{})

	if _, ok := broadcast.last(EventError); !ok {
		t.Error("expected error_msg for voting outside the judging phase")
	}
}

func TestJoinRoom_FullAndUnknown(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)

	svc.JoinRoom("p1", models.JoinRoomRequest{Code: "ZZZZ", Name: "Nadie"})
	if _, ok := broadcast.last(EventError); !ok {
		t.Fatal("expected error_msg for unknown room code")
	}

	svc.CreateRoom("host-1", models.CreateRoomRequest{PlayerName: "Ana"})
	joined, _ := broadcast.last(EventRoomJoined)
	code := joined.payload.(models.RoomJoined).Code
	room, _ := svc.Registry().Get(code)

	room.mu.Lock()
	room.config.MaxPlayers = 1
	room.mu.Unlock()

	broadcast.events = nil
	svc.JoinRoom("p2", models.JoinRoomRequest{Code: code, Name: "Berta"})

	if _, ok := broadcast.last(EventError); !ok {
		t.Error("expected error_msg when the room is at capacity")
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.players) != 1 {
		t.Errorf("roster size = %d, want 1 (rejected joiner must not be added)", len(room.players))
	}
}

func TestJoinRoom_PasswordChecked(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)

	svc.CreateRoom("host-1", models.CreateRoomRequest{PlayerName: "Ana", Password: "secreta"})
	joined, _ := broadcast.last(EventRoomJoined)
	code := joined.payload.(models.RoomJoined).Code

	broadcast.events = nil
	svc.JoinRoom("p2", models.JoinRoomRequest{Code: code, Name: "Berta", Password: "mal"})
	if _, ok := broadcast.last(EventError); !ok {
		t.Error("expected error_msg on wrong password")
	}

	broadcast.events = nil
	svc.JoinRoom("p3", models.JoinRoomRequest{Code: code, Name: "Carla", Password: "secreta"})
	if _, ok := broadcast.last(EventRoomJoined); !ok {
		t.Error("expected room_joined with the right password")
	}
}

func TestRejectionTextComesFromClassifiedErrors(t *testing.T) {
	svc, _, broadcast, _ := setupService(t)

	svc.JoinRoom("p1", models.JoinRoomRequest{Code: "ZZZZ", Name: "Nadie"})
	if event, _ := broadcast.last(EventError); event.payload != "La sala no existe o ha cerrado." {
		t.Errorf("unknown-room payload = %v", event.payload)
	}

	svc.CreateRoom("host-1", models.CreateRoomRequest{PlayerName: "Ana", Password: "secreta"})
	joined, _ := broadcast.last(EventRoomJoined)
	code := joined.payload.(models.RoomJoined).Code

	broadcast.events = nil
	svc.JoinRoom("p2", models.JoinRoomRequest{Code: code, Name: "Berta", Password: "mal"})
	if event, _ := broadcast.last(EventError); event.payload != "Contraseña incorrecta." {
		t.Errorf("wrong-password payload = %v", event.payload)
	}

	room, _ := svc.Registry().Get(code)
	room.mu.Lock()
	room.config.MaxPlayers = 1
	room.mu.Unlock()

	broadcast.events = nil
	svc.JoinRoom("p3", models.JoinRoomRequest{Code: code, Name: "Carla", Password: "secreta"})
	if event, _ := broadcast.last(EventError); event.payload != "La sala está llena." {
		t.Errorf("full-room payload = %v", event.payload)
	}
}

func TestToClientMessage(t *testing.T) {
	if got := toClientMessage(errors.Full("La sala está llena.")); got != "La sala está llena." {
		t.Errorf("classified error text = %q", got)
	}
	// Plain errors must not leak internals to players.
	if got := toClientMessage(stderrors.New("sql: database is locked")); got != "Algo salió mal." {
		t.Errorf("fallback text = %q", got)
	}
}

func TestMatchOver_PersistsWinnerAndRemovesBotRoom(t *testing.T) {
	svc, clock, broadcast, leaderboard := setupService(t)

	svc.FindMatch("h1", models.FindMatchRequest{Name: "Ana"})
	joined, _ := broadcast.last(EventRoomJoined)
	code := joined.payload.(models.RoomJoined).Code
	room, _ := svc.Registry().Get(code)

	room.mu.Lock()
	room.config.TotalRounds = 1
	room.mu.Unlock()

	if !clock.fire(exactly(LobbyAutoStart)) {
		t.Fatal("expected a pending lobby auto-start timer")
	}
	forceLetter(room, "A")
	room.mu.Lock()
	room.categories = []string{"COLOR"}
	room.mu.Unlock()

	// Human beats the bot to it; the bot is back-filled and ties at 100.
	svc.SubmitWords("h1", code, map[string]string{"COLOR": "Azul"})

	over, ok := broadcast.last(EventMatchOver)
	if !ok {
		t.Fatal("expected match_over after the final round")
	}
	podium := over.payload.([]models.PodiumEntry)
	if len(podium) != 2 {
		t.Fatalf("podium has %d entries, want 2", len(podium))
	}
	for _, entry := range podium {
		if entry.Wins != 1 {
			t.Errorf("%s has %d wins, want 1 (tie awards all)", entry.Name, entry.Wins)
		}
	}

	select {
	case call := <-leaderboard.upserts:
		if call.name != "Ana" || !call.increment {
			t.Errorf("leaderboard upsert = %+v, want Ana with increment", call)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a leaderboard upsert for the human winner")
	}

	deadline := time.Now().Add(time.Second)
	for svc.Registry().Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("bot-assisted room must be removed after match end")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
