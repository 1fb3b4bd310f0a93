// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily deck.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start today's daily game (creates or reuses session)
//   - GET  /daily/leaderboard → fewest-moves results for today (or a given date)
//
// Picks go through the regular /game/{id}/select route. Everyone gets the
// same layout for a UTC date; each player's first win of the day is recorded
// and further daily games that day are refused.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/daily"
	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/store"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]string // player|date → live game id
	mu       sync.Mutex        // guards sessions
	now      func() time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.daily.handleNew)
		r.Get("/leaderboard", s.daily.handleLeaderboard)
	})
}

func (d *dailyServer) today() string {
	if d.now != nil {
		return daily.DateKey(d.now())
	}
	return daily.DateKey(time.Now())
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID string     `json:"gameId"`
	Date   string     `json:"date"`
	Played bool       `json:"played"`
	State  *stateView `json:"state,omitempty"`
}

// handleNew creates or reuses today's daily session.
//   - If the player already has a recorded result for today → Played=true.
//   - Otherwise reuse the live session or deal the seeded deck.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	userID, anonID := d.srv.callerOf(w, r)
	player := userID
	if player == "" {
		player = anonID
	}
	date := d.today()

	if played, err := d.store.AlreadyPlayed(r.Context(), player, date); err != nil {
		log.Warn().Err(err).Msg("daily already played")
	} else if played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
		return
	}

	key := dailyKey(player, date)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked(date)

	if id, ok := d.sessions[key]; ok {
		if sess, err := d.srv.store.Get(r.Context(), id); err == nil {
			view := buildStateView(sess, sess.Game.Snapshot())
			_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: id, Date: date, State: &view})
			return
		}
		delete(d.sessions, key)
	}

	sess, err := d.srv.newGame(r.Context(), userID, anonID, store.ModeDaily, date,
		game.WithSeed(daily.Seed(date, d.salt)))
	if err != nil {
		log.Error().Err(err).Msg("save daily game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	d.sessions[key] = sess.Game.ID

	view := buildStateView(sess, sess.Game.Snapshot())
	_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: sess.Game.ID, Date: date, State: &view})
}

// recordWin stores the result of a won daily game and forgets the live session.
func (d *dailyServer) recordWin(ctx context.Context, sess *store.Session, snap game.Snapshot) {
	if err := d.store.InsertResult(ctx, daily.Result{
		UserID: sess.Player(), Date: sess.Date, GameID: snap.ID, Moves: snap.Moves,
	}); err != nil {
		log.Warn().Err(err).Str("gameId", snap.ID).Msg("insert daily result")
	}
	d.forget(sess)
}

func dailyKey(player, date string) string { return player + "|" + date }

// forget drops the live-session entry for sess.
func (d *dailyServer) forget(sess *store.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := dailyKey(sess.Player(), sess.Date)
	if d.sessions[key] == sess.Game.ID {
		delete(d.sessions, key)
	}
}

// pruneLocked drops entries for any date other than today. The games
// themselves are left to the idle reaper.
func (d *dailyServer) pruneLocked(today string) {
	for key := range d.sessions {
		if !strings.HasSuffix(key, "|"+today) {
			delete(d.sessions, key)
		}
	}
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = d.today()
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
