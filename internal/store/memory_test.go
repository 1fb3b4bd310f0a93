package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory/internal/game"
)

func TestMemorySaveGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	sess := &Session{Game: game.New(), AnonID: "anon", Mode: ModeClassic}

	require.NoError(t, m.Save(ctx, sess))
	got, err := m.Get(ctx, sess.Game.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, sess.Game.ID))
	_, err = m.Get(ctx, sess.Game.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySweepDropsIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore()
	m.now = func() time.Time { return now }

	idle := &Session{Game: game.New()}
	busy := &Session{Game: game.New()}
	require.NoError(t, m.Save(ctx, idle))
	require.NoError(t, m.Save(ctx, busy))

	now = now.Add(30 * time.Minute)
	_, err := m.Get(ctx, busy.Game.ID)
	require.NoError(t, err)

	removed := m.Sweep(now.Add(-10 * time.Minute))
	require.Len(t, removed, 1)
	assert.Same(t, idle, removed[0])

	_, err = idle.Game.Select(0)
	assert.ErrorIs(t, err, game.ErrGameClosed)
	_, err = busy.Game.Select(0)
	assert.NoError(t, err)

	_, err = m.Get(ctx, idle.Game.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(ctx, busy.Game.ID)
	assert.NoError(t, err)
}

func TestReapHandsExpiredSessionsToCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMemoryStore()
	sess := &Session{Game: game.New()}
	require.NoError(t, m.Save(ctx, sess))

	expired := make(chan []*Session, 1)
	go m.Reap(ctx, 20*time.Millisecond, func(s []*Session) { expired <- s })

	select {
	case got := <-expired:
		require.Len(t, got, 1)
		assert.Equal(t, sess.Game.ID, got[0].Game.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("idle session never reaped")
	}
	assert.Equal(t, 0, m.Len())
}

func TestSessionPlayer(t *testing.T) {
	assert.Equal(t, "u1", (&Session{UserID: "u1", AnonID: "a1"}).Player())
	assert.Equal(t, "a1", (&Session{AnonID: "a1"}).Player())
}
