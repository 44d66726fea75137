package game

import "time"

// Letters a round can draw. Rare symbols (K, Ñ, Q, W, X, Y, Z) are excluded
// so every category has plausible answers.
const roundAlphabet = "ABCDEFGHIJLMNOPRSTUV"

// Full category pool; each round deals CategoriesPerRound of these.
var allCategories = []string{
	"NOMBRE", "COLOR", "FRUTA", "PAÍS", "ANIMAL", "MARCA",
	"COMIDA", "OBJETO", "PROFESIÓN", "PELÍCULA", "SERIE",
	"FAMOSO", "VERBO", "DEPORTE", "CUERPO", "ROPA", "TRANSPORTE",
	"VIDEOJUEGO", "CANTANTE", "CIUDAD", "ASIGNATURA",
}

const (
	// CategoriesPerRound is how many categories are dealt each round
	CategoriesPerRound = 5

	// PointsPerWord is awarded for every word accepted by the judge
	PointsPerWord = 100

	// PanicDuration is the grace period clients get to submit after a stop
	PanicDuration = 8 * time.Second

	// RankingPause is how long the round ranking stays on screen before the
	// next round starts
	RankingPause = 5 * time.Second

	// LobbyAutoStart is the wait before a matchmade room starts on its own
	LobbyAutoStart = 5 * time.Second

	// Bot think-time bounds
	BotThinkMin = 15 * time.Second
	BotThinkMax = 35 * time.Second

	// DefaultIdleTTL is how long an untouched room survives the idle sweep
	DefaultIdleTTL = time.Hour
)

const (
	DefaultTotalRounds = 5
	DefaultRoundTime   = 60
	DefaultMaxPlayers  = 8
)
