package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func insertUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, "user_"+id, "x", "2026-01-01T00:00:00Z")
	require.NoError(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestHistoryLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	insertUser(t, db, "u1")
	h := NewHistory(db)

	require.NoError(t, h.Start(ctx, GameRow{ID: "g1", UserID: "u1", Mode: ModeClassic}))
	require.NoError(t, h.RecordMoves(ctx, "g1", 3))
	require.NoError(t, h.Finish(ctx, "g1", "u1", 9))

	rows, err := h.Mine(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "won", rows[0].Status)
	assert.Equal(t, 9, rows[0].Moves)
	assert.NotEmpty(t, rows[0].FinishedAt)

	require.NoError(t, h.Restart(ctx, "g1", "u1"))
	rows, err = h.Mine(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, "playing", rows[0].Status)
	assert.Equal(t, 0, rows[0].Moves)

	var played, completed int
	require.NoError(t, db.QueryRow(`SELECT games_played, games_completed FROM users WHERE id='u1'`).Scan(&played, &completed))
	assert.Equal(t, 2, played)
	assert.Equal(t, 1, completed)
}

func TestHistoryClaimAnon(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	insertUser(t, db, "u1")
	h := NewHistory(db)

	require.NoError(t, h.Start(ctx, GameRow{ID: "g1", AnonymousID: "anon", Mode: ModeClassic}))
	rows, err := h.Mine(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, h.ClaimAnon(ctx, "anon", "u1"))
	rows, err = h.Mine(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "g1", rows[0].ID)
}
