package daily

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory/internal/store"
)

func TestDateKeyIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	ts := time.Date(2026, 3, 2, 5, 0, 0, 0, loc) // 2026-03-01 19:00 UTC
	assert.Equal(t, "2026-03-01", DateKey(ts))
}

func TestSeedIsDeterministic(t *testing.T) {
	assert.Equal(t, Seed("2026-03-01", "salt"), Seed("2026-03-01", "salt"))
	assert.NotEqual(t, Seed("2026-03-01", "salt"), Seed("2026-03-02", "salt"))
	assert.NotEqual(t, Seed("2026-03-01", "salt"), Seed("2026-03-01", "pepper"))
}

func TestStoreResultsAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "daily.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))

	_, err = db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1','alice','x','2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	s := NewStore(db)
	played, err := s.AlreadyPlayed(ctx, "u1", "2026-03-01")
	require.NoError(t, err)
	assert.False(t, played)

	require.NoError(t, s.InsertResult(ctx, Result{UserID: "u1", Date: "2026-03-01", GameID: "g1", Moves: 12}))
	require.NoError(t, s.InsertResult(ctx, Result{UserID: "anon-1", Date: "2026-03-01", GameID: "g2", Moves: 9}))
	// Second result for the same player and day is ignored.
	require.NoError(t, s.InsertResult(ctx, Result{UserID: "u1", Date: "2026-03-01", GameID: "g3", Moves: 8}))

	played, err = s.AlreadyPlayed(ctx, "u1", "2026-03-01")
	require.NoError(t, err)
	assert.True(t, played)

	top, err := s.Leaderboard(ctx, "2026-03-01", 0)
	require.NoError(t, err)
	assert.Equal(t, []LBRow{{Player: "guest", Moves: 9}, {Player: "alice", Moves: 12}}, top)

	top, err = s.Leaderboard(ctx, "2026-03-02", 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}
