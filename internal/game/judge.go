package game

import (
	"strings"
	"unicode/utf8"
)

// Vote verdicts as sent by clients
const (
	VerdictValid   = "valid"
	VerdictInvalid = "invalid"
)

// WordMatchesLetter reports whether word is non-empty and starts with the
// round letter, case-insensitively.
func WordMatchesLetter(word, letter string) bool {
	if word == "" || letter == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(word)
	want, _ := utf8.DecodeRuneInString(letter)
	return strings.EqualFold(string(first), string(want))
}

// ScoreDirect computes per-player scores for a round under DIRECT mode: every
// word beginning with the round letter is worth PointsPerWord, nothing else
// is validated. submissions is playerID -> category -> word.
func ScoreDirect(submissions map[string]map[string]string, letter string) map[string]int {
	scores := make(map[string]int, len(submissions))
	for playerID, words := range submissions {
		total := 0
		for _, word := range words {
			if WordMatchesLetter(word, letter) {
				total += PointsPerWord
			}
		}
		scores[playerID] = total
	}
	return scores
}

// ScoreVote computes per-player scores under VOTE mode. A word counts when it
// passes the letter rule and fewer than ceil(totalPlayers/2) peers voted it
// invalid. votes is voterID -> targetID -> category -> verdict. A one-player
// room has no peers, so its letter-valid words always count.
func ScoreVote(submissions map[string]map[string]string, votes map[string]map[string]map[string]string, letter string, totalPlayers int) map[string]int {
	threshold := (totalPlayers + 1) / 2 // ceil(n/2)

	scores := make(map[string]int, len(submissions))
	for playerID, words := range submissions {
		total := 0
		for category, word := range words {
			if !WordMatchesLetter(word, letter) {
				continue
			}
			if votesAgainst(votes, playerID, category) >= threshold {
				continue
			}
			total += PointsPerWord
		}
		scores[playerID] = total
	}
	return scores
}

// votesAgainst counts invalid verdicts cast by other players against one
// (player, category) pair
func votesAgainst(votes map[string]map[string]map[string]string, targetID, category string) int {
	count := 0
	for voterID, targets := range votes {
		if voterID == targetID {
			continue
		}
		if verdicts, ok := targets[targetID]; ok && verdicts[category] == VerdictInvalid {
			count++
		}
	}
	return count
}
