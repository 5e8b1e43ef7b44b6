package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestSQLiteStore(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), zaptest.NewLogger(t), ttl, 0)
	require.NoError(t, err)
	t.Cleanup(store.Stop)
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t, 0)

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err = store.Update(ctx, "s1", func(s *core.Session) error {
		s.AppendTurn(core.Turn{Role: core.RoleCounterpart, Text: "pay x@ybl", Timestamp: ts})
		s.AppendTurn(core.Turn{Role: core.RoleAgent, Text: "how?", Timestamp: ts.Add(time.Second)})
		s.MergeIntelligence(core.ExtractIntelligence("pay x@ybl"))
		s.ScamDetected = true
		return nil
	})
	require.NoError(t, err)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.TurnCount)
	require.Len(t, sess.Turns, 2)
	assert.True(t, sess.Turns[0].Timestamp.Equal(ts))
	assert.Equal(t, core.RoleAgent, sess.Turns[1].Role)
	assert.Equal(t, []string{"x@ybl"}, sess.Intelligence[core.CategoryPaymentHandles])
	assert.True(t, sess.ScamDetected)

	n, err := core.IncrementAndGetTurnCount(ctx, store, "s1", core.RoleCounterpart)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_DeleteAndCleanup(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t, 10*time.Millisecond)

	require.NoError(t, core.AppendTurn(ctx, store, "gone", core.Turn{Role: core.RoleCounterpart, Text: "a"}))
	require.NoError(t, store.Delete(ctx, "gone"))
	_, err := store.Get(ctx, "gone")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	require.NoError(t, core.AppendTurn(ctx, store, "old", core.Turn{Role: core.RoleCounterpart, Text: "a"}))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, core.AppendTurn(ctx, store, "fresh", core.Turn{Role: core.RoleCounterpart, Text: "b"}))
	require.NoError(t, store.Cleanup(ctx))

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestSQLiteStore_ClosedStore(t *testing.T) {
	store := newTestSQLiteStore(t, 0)
	store.Stop()

	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrStoreClosed)
	err = core.AppendTurn(context.Background(), store, "s1", core.Turn{Role: core.RoleCounterpart, Text: "hi"})
	assert.ErrorIs(t, err, ErrStoreClosed)
}
