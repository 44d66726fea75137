package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/velocitygame/velocity-server/internal/models"
)

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes a standardized JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// queryInt reads an integer query parameter with a default
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// handleLeaderboard returns the top player records by wins
func (h *Handlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	if limit > 100 {
		limit = 100
	}

	entries, err := h.Repo.TopPlayers(r.Context(), limit)
	if err != nil {
		h.Log.Error("Failed to read leaderboard", "error", err)
		respondError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}
