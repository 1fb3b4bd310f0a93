package game

import (
	"errors"
	"reflect"
	"testing"
)

func TestCreateDeck(t *testing.T) {
	deck := CreateDeck(nil)

	if len(deck) != DeckSize {
		t.Fatalf("expected %d cards, got %d", DeckSize, len(deck))
	}

	for i, c := range deck {
		if c.ID != i {
			t.Errorf("expected card[%d].ID=%d, got %d", i, i, c.ID)
		}
		if c.Revealed || c.Matched {
			t.Errorf("card[%d] should start hidden, got revealed=%v matched=%v", i, c.Revealed, c.Matched)
		}
	}

	counts := make(map[Symbol]int)
	for _, c := range deck {
		counts[c.Symbol]++
	}
	if len(counts) != len(Alphabet) {
		t.Errorf("expected %d distinct symbols, got %d", len(Alphabet), len(counts))
	}
	for _, s := range Alphabet {
		if counts[s] != 2 {
			t.Errorf("symbol %s appears %d times, expected 2", s, counts[s])
		}
	}
}

func TestCreateDeckSeededIsReproducible(t *testing.T) {
	a := CreateDeck(SeededRand(42))
	b := CreateDeck(SeededRand(42))
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different decks")
	}

	c := CreateDeck(SeededRand(43))
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical decks")
	}
}

// Each symbol should land in each position roughly equally often.
func TestCreateDeckHasNoPositionalBias(t *testing.T) {
	const rounds = 16000
	r := SeededRand(7)
	var hitsA [DeckSize]int
	for i := 0; i < rounds; i++ {
		for pos, c := range CreateDeck(r) {
			if c.Symbol == "A" {
				hitsA[pos]++
			}
		}
	}
	// Expected 2/16 of rounds per position = 2000.
	for pos, n := range hitsA {
		if n < 1700 || n > 2300 {
			t.Errorf("position %d held A %d times, expected about 2000", pos, n)
		}
	}
}

func TestDeckFromSymbols(t *testing.T) {
	deck, err := DeckFromSymbols("A", "B", "A", "B")
	if err != nil {
		t.Fatal(err)
	}
	want := []Card{{ID: 0, Symbol: "A"}, {ID: 1, Symbol: "B"}, {ID: 2, Symbol: "A"}, {ID: 3, Symbol: "B"}}
	if !reflect.DeepEqual(deck, want) {
		t.Errorf("got %+v, want %+v", deck, want)
	}
}

func TestDeckFromSymbolsRejectsUnpaired(t *testing.T) {
	tests := []struct {
		name    string
		symbols []Symbol
	}{
		{"empty", nil},
		{"single", []Symbol{"A"}},
		{"triple", []Symbol{"A", "A", "A", "B", "B", "B"}},
		{"odd one out", []Symbol{"A", "A", "B"}},
	}

	for _, test := range tests {
		if _, err := DeckFromSymbols(test.symbols...); !errors.Is(err, ErrInvalidDeck) {
			t.Errorf("%s: expected ErrInvalidDeck, got %v", test.name, err)
		}
	}
}
