package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
)

// handleRoomQR serves a PNG QR code encoding the join URL for a room, so a
// host can put it on a shared screen and players join by scanning.
func (h *Handlers) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if len(code) != 4 {
		respondError(w, http.StatusBadRequest, "invalid room code")
		return
	}

	joinURL := fmt.Sprintf("%s/join/%s", strings.TrimRight(h.BaseURL, "/"), code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		h.Log.Error("QR generation failed", "code", code, "error", err)
		respondError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
