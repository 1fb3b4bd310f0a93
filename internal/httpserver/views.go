package httpserver

import (
	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/store"
)

// cardView is what the client renders. The symbol of a face-down card is
// never sent.
type cardView struct {
	ID       int          `json:"id"`
	Revealed bool         `json:"revealed"`
	Matched  bool         `json:"matched"`
	Symbol   *game.Symbol `json:"symbol,omitempty"`
}

type stateView struct {
	GameID     string     `json:"gameId"`
	Mode       string     `json:"mode"`
	Date       string     `json:"date,omitempty"`
	Cards      []cardView `json:"cards"`
	Selection  []int      `json:"selection"`
	Turn       game.Turn  `json:"turn"`
	Resolving  bool       `json:"resolving"`
	Moves      int        `json:"moves"`
	Won        bool       `json:"won"`
	Generation uint64     `json:"generation"`
}

func buildCardViews(cards []game.Card) []cardView {
	out := make([]cardView, len(cards))
	for i, c := range cards {
		out[i] = cardView{ID: c.ID, Revealed: c.Revealed, Matched: c.Matched}
		if c.Revealed || c.Matched {
			sym := c.Symbol
			out[i].Symbol = &sym
		}
	}
	return out
}

func buildStateView(sess *store.Session, snap game.Snapshot) stateView {
	return stateView{
		GameID:     snap.ID,
		Mode:       sess.Mode,
		Date:       sess.Date,
		Cards:      buildCardViews(snap.Cards),
		Selection:  snap.Selection,
		Turn:       snap.Turn,
		Resolving:  snap.Resolving,
		Moves:      snap.Moves,
		Won:        snap.Won,
		Generation: snap.Generation,
	}
}
