// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Live games are never written to disk; a restart ends every game in
// progress.
//
// Characteristics:
//   - Stores *Session objects keyed by game ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Sessions idle longer than a timeout are swept by Reap; their games are
//     closed so no timer or socket keeps acting on them.
//   - ErrNotFound is returned for missing game IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/game"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("not found")

const (
	ModeClassic = "classic"
	ModeDaily   = "daily"
)

// Session is a live game plus the metadata the server needs around it.
type Session struct {
	Game   *game.Game
	UserID string // set when a signed-in user started the game
	AnonID string // guest cookie id when no user was signed in
	Mode   string // ModeClassic | ModeDaily
	Date   string // daily date key; empty for classic games
}

// Player returns the key identifying whoever started the game.
func (s *Session) Player() string {
	if s.UserID != "" {
		return s.UserID
	}
	return s.AnonID
}

// Store defines the registry of live game sessions.
type Store interface {
	// Save persists or updates a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by game ID and marks it active.
	// Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Missing ids are ignored.
	Delete(ctx context.Context, id string) error
}

type entry struct {
	session    *Session
	lastActive time.Time
}

// Memory is an in-memory map-based Store implementation.
type Memory struct {
	mu       sync.RWMutex      // guards sessions
	sessions map[string]*entry // keyed by Game.ID
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() *Memory {
	return &Memory{sessions: make(map[string]*entry), now: time.Now}
}

// Save adds or updates the session in the map.
func (m *Memory) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Game.ID] = &entry{session: s, lastActive: m.now()}
	return nil
}

// Get looks up a session by game ID.
func (m *Memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		e.lastActive = m.now()
		return e.session, nil
	}
	return nil, ErrNotFound
}

// Delete drops a session.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle since before cutoff, closes their games and
// returns them.
func (m *Memory) Sweep(cutoff time.Time) []*Session {
	m.mu.Lock()
	var removed []*Session
	for id, e := range m.sessions {
		if e.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			removed = append(removed, e.session)
		}
	}
	m.mu.Unlock()

	for _, s := range removed {
		s.Game.Close()
	}
	return removed
}

// Reap sweeps idle sessions every timeout/2 until ctx is done. onExpire, if
// set, receives each non-empty batch of swept sessions.
func (m *Memory) Reap(ctx context.Context, timeout time.Duration, onExpire func([]*Session)) {
	if timeout <= 0 {
		return
	}
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := m.Sweep(m.now().Add(-timeout))
			if len(expired) == 0 {
				continue
			}
			log.Info().Int("count", len(expired)).Msg("expired idle games")
			if onExpire != nil {
				onExpire(expired)
			}
		}
	}
}
