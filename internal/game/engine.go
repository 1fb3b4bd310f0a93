// internal/game/engine.go
//
// Core game engine for a single memory game.
// Responsibilities:
//   - Create new games with a shuffled 16-card deck.
//   - Apply card selections through the turn machine (idle → one selected →
//     resolving → idle).
//   - Count moves (one per completed pair of picks) and detect the win.
//   - Schedule the timed flip-back of a mismatched pair, and make sure a
//     flip-back scheduled before Reset or Close never touches the game.
//
// Notes:
//   - Invalid picks are silent no-ops; only an out-of-range card id is an error.
//   - Each Game owns its own mutex because the flip-back fires on a timer
//     goroutine while requests arrive on others.
//   - randomID() is a compact hex identifier for correlating server state.
package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMismatchDelay is how long a mismatched pair stays face-up.
const DefaultMismatchDelay = time.Second

var (
	// ErrInvalidCard is returned by Select for an id outside [0, N).
	ErrInvalidCard = errors.New("invalid card id")
	// ErrGameClosed is returned by Select once the game has been closed.
	ErrGameClosed = errors.New("game closed")
)

// Game holds the state of one memory game.
type Game struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	cards      []Card
	selection  []int
	resolving  bool
	moves      int
	won        bool
	generation uint64
	pending    Timer
	closed     bool

	outbox   []Snapshot // notifications not yet delivered, oldest first
	draining bool       // a goroutine is delivering outbox

	newDeck   func() []Card
	delay     time.Duration
	scheduler Scheduler
	notify    func(Snapshot)
}

// Option configures a Game at construction.
type Option func(*Game)

// WithDeck makes every deal (including after Reset) use the given fixed layout.
func WithDeck(cards []Card) Option {
	return func(g *Game) {
		fixed := make([]Card, len(cards))
		copy(fixed, cards)
		g.newDeck = func() []Card { return hideAll(fixed) }
	}
}

// WithSeed makes every deal use the same seeded permutation.
func WithSeed(seed uint64) Option {
	return func(g *Game) {
		g.newDeck = func() []Card { return CreateDeck(SeededRand(seed)) }
	}
}

// WithDelay overrides the mismatch flip-back delay.
func WithDelay(d time.Duration) Option {
	return func(g *Game) { g.delay = d }
}

// WithScheduler overrides the timer source.
func WithScheduler(s Scheduler) Option {
	return func(g *Game) { g.scheduler = s }
}

// WithNotify registers a callback invoked with a fresh snapshot after every
// state change, including the deferred flip-back. It runs without the game
// lock held. Calls never overlap and arrive in the order the changes
// happened.
func WithNotify(fn func(Snapshot)) Option {
	return func(g *Game) { g.notify = fn }
}

// New constructs a new game with a freshly dealt deck.
func New(opts ...Option) *Game {
	g := &Game{
		ID:        randomID(),
		CreatedAt: time.Now().UTC(),
		newDeck:   func() []Card { return CreateDeck(nil) },
		delay:     DefaultMismatchDelay,
		scheduler: wallClock{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.cards = g.newDeck()
	g.selection = make([]int, 0, 2)
	return g
}

// Select applies a pick of card id.
//
// Guards (no-op, OutcomeIgnored): resolving, two cards already selected,
// card already revealed or matched, game already won.
//
// On the second pick of a turn the move counter increments; a match resolves
// immediately, a mismatch locks input until the scheduled flip-back runs.
func (g *Game) Select(id int) (Outcome, error) {
	outcome, _, err := g.Pick(id)
	return outcome, err
}

// Pick is Select that also returns the state the pick produced, taken under
// the same lock as the change itself.
func (g *Game) Pick(id int) (Outcome, Snapshot, error) {
	g.mu.Lock()
	if g.closed {
		snap := g.snapshotLocked()
		g.mu.Unlock()
		return OutcomeIgnored, snap, ErrGameClosed
	}
	if id < 0 || id >= len(g.cards) {
		snap := g.snapshotLocked()
		g.mu.Unlock()
		return OutcomeIgnored, snap, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidCard, id, len(snap.Cards))
	}
	if g.won || g.resolving || len(g.selection) >= 2 ||
		g.cards[id].Revealed || g.cards[id].Matched {
		snap := g.snapshotLocked()
		g.mu.Unlock()
		return OutcomeIgnored, snap, nil
	}

	g.cards[id].Revealed = true
	g.selection = append(g.selection, id)

	if len(g.selection) == 1 {
		return OutcomeFirst, g.publishLocked(), nil
	}

	g.moves++
	a, b := g.selection[0], g.selection[1]

	var outcome Outcome
	if g.cards[a].Symbol == g.cards[b].Symbol {
		g.cards[a].Matched = true
		g.cards[b].Matched = true
		g.selection = g.selection[:0]
		g.won = allMatched(g.cards)
		outcome = OutcomeMatch
	} else {
		g.resolving = true
		gen := g.generation
		g.pending = g.scheduler.AfterFunc(g.delay, func() { g.flipBack(gen, a, b) })
		outcome = OutcomeMismatch
	}
	return outcome, g.publishLocked(), nil
}

// flipBack hides a mismatched pair. It is a no-op if the game was reset or
// closed after the flip-back was scheduled.
func (g *Game) flipBack(gen uint64, a, b int) {
	g.mu.Lock()
	if gen != g.generation || !g.resolving {
		g.mu.Unlock()
		log.Debug().Str("gameId", g.ID).Uint64("generation", gen).Msg("stale flip-back dropped")
		return
	}
	g.cards[a].Revealed = false
	g.cards[b].Revealed = false
	g.selection = g.selection[:0]
	g.resolving = false
	g.pending = nil
	log.Debug().Str("gameId", g.ID).Int("a", a).Int("b", b).Msg("mismatch resolved")
	g.publishLocked()
}

// Reset deals a new deck and clears every counter. Any pending flip-back
// from the previous deal is stopped and, if it fires anyway, ignored.
// A closed game is left as it is.
func (g *Game) Reset() Snapshot {
	g.mu.Lock()
	if g.closed {
		snap := g.snapshotLocked()
		g.mu.Unlock()
		return snap
	}
	g.stopPendingLocked()
	g.cards = g.newDeck()
	g.selection = g.selection[:0]
	g.resolving = false
	g.moves = 0
	g.won = false
	return g.publishLocked()
}

// Close ends the game: the pending flip-back is cancelled and every later
// Pick fails with ErrGameClosed. Close is idempotent.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.stopPendingLocked()
}

// Snapshot returns a copy of the current observable state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// stopPendingLocked cancels the flip-back timer and bumps the generation so
// a callback already on its way is dropped.
func (g *Game) stopPendingLocked() {
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.generation++
}

// publishLocked queues a snapshot of the current state for the notifier,
// releases g.mu and delivers the queue. Snapshots reach the notifier in the
// order the changes happened: only one goroutine drains at a time, and a
// change made while another goroutine is draining is left for that
// goroutine to deliver.
func (g *Game) publishLocked() Snapshot {
	snap := g.snapshotLocked()
	if g.notify == nil {
		g.mu.Unlock()
		return snap
	}
	g.outbox = append(g.outbox, snap)
	if g.draining {
		g.mu.Unlock()
		return snap
	}
	g.draining = true
	for {
		if len(g.outbox) == 0 {
			g.draining = false
			g.mu.Unlock()
			return snap
		}
		next := g.outbox[0]
		g.outbox = g.outbox[1:]
		g.mu.Unlock()
		g.notify(next)
		g.mu.Lock()
	}
}

func (g *Game) snapshotLocked() Snapshot {
	cards := make([]Card, len(g.cards))
	copy(cards, g.cards)
	sel := make([]int, len(g.selection))
	copy(sel, g.selection)
	return Snapshot{
		ID:         g.ID,
		Cards:      cards,
		Selection:  sel,
		Turn:       g.turnLocked(),
		Resolving:  g.resolving,
		Moves:      g.moves,
		Won:        g.won,
		Generation: g.generation,
		CreatedAt:  g.CreatedAt,
	}
}

func (g *Game) turnLocked() Turn {
	switch {
	case g.resolving:
		return TurnResolving
	case len(g.selection) == 1:
		return TurnOneSelected
	default:
		return TurnIdle
	}
}

// allMatched returns true if every card is matched.
func allMatched(cards []Card) bool {
	for _, c := range cards {
		if !c.Matched {
			return false
		}
	}
	return true
}

func hideAll(cards []Card) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = Card{ID: c.ID, Symbol: c.Symbol}
	}
	return out
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
