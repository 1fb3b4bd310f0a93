package store

import (
	"context"
	"database/sql"
	"time"
)

// GameRow is the persisted record of one game, owned either by a user or by
// an anonymous cookie id.
type GameRow struct {
	ID          string `json:"id"`
	UserID      string `json:"-"`
	AnonymousID string `json:"-"`
	Mode        string `json:"mode"`
	Status      string `json:"status"` // "playing" | "won"
	Moves       int    `json:"moves"`
	StartedAt   string `json:"startedAt"`
	FinishedAt  string `json:"finishedAt,omitempty"`
}

// History records game lifecycles and per-user counters in SQLite.
type History struct{ db *sql.DB }

func NewHistory(db *sql.DB) *History { return &History{db: db} }

func nowStamp() string { return time.Now().UTC().Format(time.RFC3339) }

// nullable maps "" to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Start inserts the row for a new game and counts it toward the owner's
// games played.
func (h *History) Start(ctx context.Context, r GameRow) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO games (id, user_id, anonymous_id, mode, started_at, status, moves)
		 VALUES (?,?,?,?,?,'playing',0)`,
		r.ID, nullable(r.UserID), nullable(r.AnonymousID), r.Mode, nowStamp(),
	); err != nil {
		return err
	}
	if err := bumpPlayed(ctx, tx, r.UserID); err != nil {
		return err
	}
	return tx.Commit()
}

// Restart rewinds the row after a reset; a reset counts as a new game played.
func (h *History) Restart(ctx context.Context, id, userID string) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET moves=0, status='playing', finished_at=NULL, started_at=? WHERE id=?`,
		nowStamp(), id,
	); err != nil {
		return err
	}
	if err := bumpPlayed(ctx, tx, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordMoves stores the current move counter.
func (h *History) RecordMoves(ctx context.Context, id string, moves int) error {
	_, err := h.db.ExecContext(ctx, `UPDATE games SET moves=? WHERE id=?`, moves, id)
	return err
}

// Finish marks a game won and counts it toward the owner's completed games.
func (h *History) Finish(ctx context.Context, id, userID string, moves int) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET moves=?, status='won', finished_at=? WHERE id=?`,
		moves, nowStamp(), id,
	); err != nil {
		return err
	}
	if userID != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET games_completed = games_completed + 1 WHERE id=?`, userID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Mine lists a user's most recent games.
func (h *History) Mine(ctx context.Context, userID string, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, mode, status, moves, started_at, COALESCE(finished_at,'')
		 FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GameRow{}
	for rows.Next() {
		r := GameRow{UserID: userID}
		if err := rows.Scan(&r.ID, &r.Mode, &r.Status, &r.Moves, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClaimAnon transfers a guest's games to a user account after login/signup.
func (h *History) ClaimAnon(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := h.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}

func bumpPlayed(ctx context.Context, tx *sql.Tx, userID string) error {
	if userID == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE users SET games_played = games_played + 1 WHERE id=?`, userID)
	return err
}
