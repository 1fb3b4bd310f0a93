// internal/httpserver/server.go
//
// HTTP server wiring for the memory game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, logging).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): POST /game/new, GET /game/{id},
//     POST /game/{id}/select, POST /game/{id}/reset, DELETE /game/{id}.
//   - Live state push: GET /game/{id}/ws; share image: GET /game/{id}/qr.
//   - Daily endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - Games live in the in-memory store; SQLite only keeps history rows and
//     counters, written best-effort.
//   - A game belongs to the signed-in user or to the guest's anonymous cookie;
//     requests for someone else's game get 404.
//   - The server owns the mismatch flip-back timer. Clients learn about it
//     over the WebSocket or by polling GET /game/{id}.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/auth"
	"github.com/robalobadob/memory/internal/daily"
	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/store"
)

// Options carries the tunables the server needs from config.
type Options struct {
	MismatchDelay time.Duration
	DailySalt     string
	ClientOrigin  string
	Production    bool

	// Scheduler overrides the flip-back timer source (tests).
	Scheduler game.Scheduler
}

// Server bundles router, game store, history DB, and auth.
type Server struct {
	r       *chi.Mux
	store   store.Store
	history *store.History
	daily   *dailyServer
	auth    *auth.Service
	hub     *hub
	opts    Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, authSvc *auth.Service, opts Options) *Server {
	if opts.MismatchDelay <= 0 {
		opts.MismatchDelay = game.DefaultMismatchDelay
	}
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	s := &Server{
		r:       chi.NewRouter(),
		store:   st,
		history: store.NewHistory(db),
		auth:    authSvc,
		hub:     newHub(),
		opts:    opts,
	}
	s.daily = &dailyServer{
		srv:      s,
		store:    daily.NewStore(db),
		salt:     opts.DailySalt,
		sessions: make(map[string]string),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)   // one log line per request
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Long-lived or binary routes stay outside the JSON/timeout group.
	s.r.With(s.auth.Optional).Get("/game/{id}/ws", s.handleWS)
	s.r.With(s.auth.Optional).Get("/game/{id}/qr", s.handleQR)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"memory-go","endpoints":["/health","POST /game/new","POST /game/{id}/select","POST /game/{id}/reset","/daily/*","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		// Game endpoints: optional auth, guests can play
		g := r.With(s.auth.Optional)
		g.Post("/game/new", s.handleNewGame)
		g.Get("/game/{id}", s.handleState)
		g.Post("/game/{id}/select", s.handleSelect)
		g.Post("/game/{id}/reset", s.handleReset)
		g.Delete("/game/{id}", s.handleEnd)

		// Daily deck: optional auth, result recorded on win
		s.mountDaily(g)

		// Auth + profile/stats
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start begins serving HTTP on addr and shuts down gracefully when ctx ends.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}
	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ------------------------------ GAME ---------------------------------------

// newGame creates and registers a live session. Extra options are applied
// after the server defaults.
func (s *Server) newGame(ctx context.Context, userID, anonID, mode, date string, opts ...game.Option) (*store.Session, error) {
	base := []game.Option{
		game.WithDelay(s.opts.MismatchDelay),
		game.WithNotify(s.publish),
	}
	if s.opts.Scheduler != nil {
		base = append(base, game.WithScheduler(s.opts.Scheduler))
	}
	g := game.New(append(base, opts...)...)
	sess := &store.Session{Game: g, UserID: userID, AnonID: anonID, Mode: mode, Date: date}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	row := store.GameRow{ID: g.ID, UserID: userID, AnonymousID: anonID, Mode: mode}
	if err := s.history.Start(ctx, row); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}
	log.Info().Str("gameId", g.ID).Str("mode", mode).Msg("game started")
	return sess, nil
}

type newGameRes struct {
	GameID string    `json:"gameId"`
	State  stateView `json:"state"`
}

// handleNewGame creates a new classic game for the caller.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	userID, anonID := s.callerOf(w, r)
	sess, err := s.newGame(r.Context(), userID, anonID, store.ModeClassic, "")
	if err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID: sess.Game.ID,
		State:  buildStateView(sess, sess.Game.Snapshot()),
	})
}

// handleState returns the current state of a game.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(buildStateView(sess, sess.Game.Snapshot()))
}

type selectReq struct {
	Card *int `json:"card"`
}

type selectRes struct {
	Outcome game.Outcome `json:"outcome"`
	State   stateView    `json:"state"`
}

// handleSelect applies one card pick.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Card == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	outcome, snap, err := s.applySelect(r.Context(), sess, *req.Card)
	switch {
	case errors.Is(err, game.ErrInvalidCard):
		writeError(w, http.StatusBadRequest, "invalid_card")
		return
	case errors.Is(err, game.ErrGameClosed):
		writeError(w, http.StatusGone, "game_closed")
		return
	}
	_ = json.NewEncoder(w).Encode(selectRes{Outcome: outcome, State: buildStateView(sess, snap)})
}

// handleReset deals a new deck for the same game id.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	snap, err := s.applyReset(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	_ = json.NewEncoder(w).Encode(buildStateView(sess, snap))
}

// handleEnd abandons a game: its timer is cancelled, watchers are
// disconnected and the id stops resolving.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), sess.Game.ID); err != nil {
		log.Error().Err(err).Str("gameId", sess.Game.ID).Msg("delete game")
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	s.Expire([]*store.Session{sess})
	log.Info().Str("gameId", sess.Game.ID).Msg("game abandoned")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// Expire tears down sessions that left the store: the game is closed, its
// WebSocket watchers are disconnected and daily bookkeeping is dropped.
// It is the store reaper's callback.
func (s *Server) Expire(expired []*store.Session) {
	for _, sess := range expired {
		sess.Game.Close()
		s.hub.closeGame(sess.Game.ID)
		if sess.Mode == store.ModeDaily {
			s.daily.forget(sess)
		}
	}
}

var errDailyReset = errors.New("daily_reset_forbidden")

// applySelect runs a pick and records its effect on history. Shared by the
// HTTP and WebSocket paths.
func (s *Server) applySelect(ctx context.Context, sess *store.Session, card int) (game.Outcome, game.Snapshot, error) {
	outcome, snap, err := sess.Game.Pick(card)
	if err != nil {
		log.Debug().Err(err).Str("gameId", sess.Game.ID).Msg("rejected select")
		return outcome, snap, err
	}
	if outcome != game.OutcomeMatch && outcome != game.OutcomeMismatch {
		return outcome, snap, nil
	}

	// Persist counters/history (best effort, non-fatal if it fails)
	if snap.Won {
		if err := s.history.Finish(ctx, snap.ID, sess.UserID, snap.Moves); err != nil {
			log.Warn().Err(err).Str("gameId", snap.ID).Msg("finish game")
		}
		if sess.Mode == store.ModeDaily {
			s.daily.recordWin(ctx, sess, snap)
		}
		log.Info().Str("gameId", snap.ID).Int("moves", snap.Moves).Msg("game won")
	} else if err := s.history.RecordMoves(ctx, snap.ID, snap.Moves); err != nil {
		log.Warn().Err(err).Str("gameId", snap.ID).Msg("update moves")
	}
	return outcome, snap, nil
}

// applyReset resets a classic game. Daily games cannot be reset: the layout
// would be the same and the result is one-shot.
func (s *Server) applyReset(ctx context.Context, sess *store.Session) (game.Snapshot, error) {
	if sess.Mode == store.ModeDaily {
		return game.Snapshot{}, errDailyReset
	}
	snap := sess.Game.Reset()
	if err := s.history.Restart(ctx, sess.Game.ID, sess.UserID); err != nil {
		log.Warn().Err(err).Str("gameId", sess.Game.ID).Msg("restart game")
	}
	return snap, nil
}

// sessionFor loads the {id} session and checks the caller owns it.
// It writes the error response itself and reports ok=false on failure.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil || !s.owns(r, sess) {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return sess, true
}

// publish fans a game's state change out to its WebSocket subscribers.
func (s *Server) publish(snap game.Snapshot) {
	sess, err := s.store.Get(context.Background(), snap.ID)
	if err != nil {
		return
	}
	view := buildStateView(sess, snap)
	s.hub.publish(snap.ID, wsMessage{Type: "state", State: &view})
}

// ------------------------------ OWNERSHIP ----------------------------------

const anonCookieName = "memory_anon"

// callerOf identifies who is starting a game: the signed-in user, or else
// the guest's anonymous id (set on first use).
func (s *Server) callerOf(w http.ResponseWriter, r *http.Request) (userID, anonID string) {
	if u := auth.FromContext(r.Context()); u != nil {
		return u.ID, ""
	}
	return "", s.ensureAnonID(w, r)
}

// owns reports whether the caller may act on sess: either the signed-in
// user or the guest cookie that started it.
func (s *Server) owns(r *http.Request, sess *store.Session) bool {
	if u := auth.FromContext(r.Context()); u != nil && sess.UserID != "" && u.ID == sess.UserID {
		return true
	}
	if c, err := r.Cookie(anonCookieName); err == nil && sess.AnonID != "" && c.Value == sess.AnonID {
		return true
	}
	return false
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := auth.NewID()
	sameSite := http.SameSiteLaxMode
	if s.opts.Production {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// ------------------------------- small util --------------------------------

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}` + "\n"))
}
