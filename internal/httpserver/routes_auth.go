package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/auth"
)

// credentialsReq is the body of signup and login.
type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuthRoutes registers authentication + gated routes (/auth/*, /stats/me, /games/mine).
func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)

	gated := r.With(s.auth.Required)
	gated.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		me := auth.FromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{"id": me.ID, "username": me.Username})
	})
	gated.Get("/stats/me", func(w http.ResponseWriter, r *http.Request) {
		me := auth.FromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             me.ID,
			"gamesPlayed":    me.GamesPlayed,
			"gamesCompleted": me.GamesCompleted,
		})
	})
	gated.Get("/games/mine", func(w http.ResponseWriter, r *http.Request) {
		me := auth.FromContext(r.Context())
		rows, err := s.history.Mine(r.Context(), me.ID, 50)
		if err != nil {
			log.Error().Err(err).Str("user", me.ID).Msg("list games")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		_ = json.NewEncoder(w).Encode(rows)
	})
}

// handleSignup creates a new user, signs a JWT, sets auth cookie, and claims anon history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.auth.CreateUser(r.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "username_taken")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.signIn(w, r, u); err != nil {
		writeError(w, http.StatusInternalServerError, "token_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates user, sets cookie, and claims anon history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.auth.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err := s.signIn(w, r, u); err != nil {
		writeError(w, http.StatusInternalServerError, "token_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// signIn issues the token cookie and attaches any guest history to u.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u *auth.User) error {
	tok, exp, err := s.auth.Sign(u)
	if err != nil {
		log.Error().Err(err).Str("user", u.ID).Msg("sign token")
		return err
	}
	s.auth.SetCookie(w, tok, exp)
	if c, err := r.Cookie(anonCookieName); err == nil {
		if err := s.history.ClaimAnon(r.Context(), c.Value, u.ID); err != nil {
			log.Warn().Err(err).Msg("claim anon games")
		}
	}
	return nil
}
