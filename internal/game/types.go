// internal/game/types.go
//
// Core type definitions for the memory game engine.
// Defines:
//   - Symbol: the face of a card (one of a fixed 8-letter alphabet).
//   - Card: a single tile on the board.
//   - Turn/Outcome: the turn machine state and the result of a selection.
//   - Snapshot: an immutable copy of observable state for rendering.

package game

import "time"

// Symbol is the face value shown on a revealed card.
type Symbol string

// Alphabet is the fixed symbol set. Every deck holds each symbol exactly twice.
var Alphabet = []Symbol{"A", "B", "C", "D", "E", "F", "G", "H"}

// DeckSize is the number of cards in a standard deck (8 symbols × 2).
const DeckSize = 16

// Card is a single tile on the board.
type Card struct {
	ID       int    `json:"id"`       // Stable index, 0..N-1.
	Symbol   Symbol `json:"symbol"`   // Never changes after deck creation.
	Revealed bool   `json:"revealed"` // Face-up.
	Matched  bool   `json:"matched"`  // Permanently resolved; implies Revealed.
}

// Turn is the state of the per-turn selection machine.
type Turn string

const (
	TurnIdle        Turn = "idle"
	TurnOneSelected Turn = "one_selected"
	TurnResolving   Turn = "resolving"
)

// Outcome reports what a call to Select did.
type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"  // a guard rejected the pick; nothing changed
	OutcomeFirst    Outcome = "first"    // first card of the turn revealed
	OutcomeMatch    Outcome = "match"    // second card matched the first
	OutcomeMismatch Outcome = "mismatch" // second card differs; flip-back scheduled
)

// Snapshot is a point-in-time copy of a game's observable state.
// It shares no memory with the Game it was taken from.
type Snapshot struct {
	ID         string    `json:"id"`
	Cards      []Card    `json:"cards"`
	Selection  []int     `json:"selection"`
	Turn       Turn      `json:"turn"`
	Resolving  bool      `json:"resolving"`
	Moves      int       `json:"moves"`
	Won        bool      `json:"won"`
	Generation uint64    `json:"generation"`
	CreatedAt  time.Time `json:"createdAt"`
}
