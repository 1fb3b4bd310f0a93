package httpserver

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320 // mobile-friendly size

// handleQR renders a PNG QR code linking the client app to this game, so a
// signed-in player can pick it up on another device.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}

	link, err := url.Parse(s.opts.ClientOrigin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "bad_origin")
		return
	}
	q := link.Query()
	q.Set("game", sess.Game.ID)
	link.RawQuery = q.Encode()

	png, err := qrcode.Encode(link.String(), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Msg("qr generation")
		writeError(w, http.StatusInternalServerError, "qr_failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
