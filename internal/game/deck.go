// internal/game/deck.go
//
// Deck construction.
//   - CreateDeck: the standard 16-card deck in a uniform random order.
//   - DeckFromSymbols: a fixed layout, validated for the pairing invariant.
//
// Shuffling uses math/rand/v2 Shuffle (Fisher–Yates), so every ordering is
// equally likely. A seeded *rand.Rand gives a reproducible deck.

package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrInvalidDeck is returned for layouts that break the pairing invariant.
var ErrInvalidDeck = errors.New("invalid deck")

// CreateDeck returns a freshly shuffled, fully hidden standard deck.
// If r is nil the runtime-seeded global source is used.
func CreateDeck(r *rand.Rand) []Card {
	symbols := make([]Symbol, 0, 2*len(Alphabet))
	symbols = append(symbols, Alphabet...)
	symbols = append(symbols, Alphabet...)

	swap := func(i, j int) { symbols[i], symbols[j] = symbols[j], symbols[i] }
	if r != nil {
		r.Shuffle(len(symbols), swap)
	} else {
		rand.Shuffle(len(symbols), swap)
	}
	return layout(symbols)
}

// DeckFromSymbols builds a hidden deck in exactly the given order.
// Every symbol must appear exactly twice.
func DeckFromSymbols(symbols ...Symbol) ([]Card, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDeck)
	}
	counts := make(map[Symbol]int, len(symbols)/2)
	for _, s := range symbols {
		counts[s]++
	}
	for s, n := range counts {
		if n != 2 {
			return nil, fmt.Errorf("%w: symbol %q appears %d times", ErrInvalidDeck, s, n)
		}
	}
	return layout(symbols), nil
}

// layout assigns ids in order.
func layout(symbols []Symbol) []Card {
	cards := make([]Card, len(symbols))
	for i, s := range symbols {
		cards[i] = Card{ID: i, Symbol: s}
	}
	return cards
}

// SeededRand returns a deterministic generator for the given seed.
func SeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
