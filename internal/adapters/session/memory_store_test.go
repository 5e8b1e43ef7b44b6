package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMemoryStore_CreateOnMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	sess, err := core.GetOrCreate(ctx, store, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.Key)
	assert.Zero(t, sess.TurnCount)
	assert.Len(t, sess.Intelligence, len(core.Categories))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.Key)
}

func TestMemoryStore_KeyedOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)

	require.NoError(t, core.AppendTurn(ctx, store, "s1", core.Turn{Role: core.RoleCounterpart, Text: "hi"}))
	require.NoError(t, core.AppendTurn(ctx, store, "s1", core.Turn{Role: core.RoleAgent, Text: "hello"}))
	require.NoError(t, core.AppendTurn(ctx, store, "s1", core.Turn{Role: core.RoleAgent, Text: "anyone?"}))
	require.NoError(t, core.AppendTurn(ctx, store, "s1", core.Turn{Role: core.RoleCounterpart, Text: "pay"}))

	bundle := core.NewIntelligenceBundle()
	bundle.Add(core.CategoryPaymentHandles, "x@ybl")
	require.NoError(t, core.MergeIntelligence(ctx, store, "s1", bundle))
	require.NoError(t, core.MergeIntelligence(ctx, store, "s1", bundle))

	n, err := core.IncrementAndGetTurnCount(ctx, store, "s1", core.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = core.IncrementAndGetTurnCount(ctx, store, "s1", core.RoleCounterpart)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "reporting the count never moves it")

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 4)
	assert.Equal(t, sess.CounterpartTurns(), sess.TurnCount)
	assert.Equal(t, []string{"x@ybl"}, sess.Intelligence[core.CategoryPaymentHandles])
}

func TestMemoryStore_FailedUpdateIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)

	require.NoError(t, core.AppendTurn(ctx, store, "s1", core.Turn{Role: core.RoleCounterpart, Text: "one"}))

	boom := errors.New("boom")
	err := store.Update(ctx, "s1", func(s *core.Session) error {
		s.AppendTurn(core.Turn{Role: core.RoleCounterpart, Text: "two"})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 1)
	assert.Equal(t, 1, sess.TurnCount)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)
	require.NoError(t, core.AppendTurn(ctx, store, "s1", core.Turn{Role: core.RoleCounterpart, Text: "one"}))

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	sess.Turns[0].Text = "changed"
	sess.Intelligence.Add(core.CategoryEmails, "a@b.com")

	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "one", again.Turns[0].Text)
	assert.Empty(t, again.Intelligence[core.CategoryEmails])
}

func TestMemoryStore_SerializesSameKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := core.AppendTurn(ctx, store, "shared", core.Turn{
				Role: core.RoleCounterpart,
				Text: fmt.Sprintf("msg %d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sess, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, workers)
	assert.Equal(t, workers, sess.TurnCount)
}

func TestMemoryStore_DifferentKeysDoNotBlock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.Update(ctx, "slow", func(s *core.Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	fast := make(chan error, 1)
	go func() {
		fast <- core.AppendTurn(ctx, store, "fast", core.Turn{Role: core.RoleCounterpart, Text: "hi"})
	}()

	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("update on another key was blocked")
	}

	close(release)
	require.NoError(t, <-done)
}

func TestMemoryStore_DeleteWaitsForUpdateInFlight(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)

	var inside, maxInside int32
	enter := func() {
		n := atomic.AddInt32(&inside, 1)
		for {
			m := atomic.LoadInt32(&maxInside)
			if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
				break
			}
		}
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- store.Update(ctx, "k", func(s *core.Session) error {
			enter()
			defer atomic.AddInt32(&inside, -1)
			close(entered)
			<-release
			s.AppendTurn(core.Turn{Role: core.RoleCounterpart, Text: "first"})
			return nil
		})
	}()
	<-entered

	deleted := make(chan error, 1)
	go func() { deleted <- store.Delete(ctx, "k") }()

	second := make(chan error, 1)
	go func() {
		second <- store.Update(ctx, "k", func(s *core.Session) error {
			enter()
			defer atomic.AddInt32(&inside, -1)
			return nil
		})
	}()

	select {
	case <-deleted:
		t.Fatal("delete returned while an update held the session")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-deleted)
	require.NoError(t, <-second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside), "updates on one key never overlap")
}

func TestMemoryStore_DeleteThenUpdateStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)

	require.NoError(t, core.AppendTurn(ctx, store, "k", core.Turn{Role: core.RoleCounterpart, Text: "old"}))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())

	sess, err := core.GetOrCreate(ctx, store, "k")
	require.NoError(t, err)
	assert.Empty(t, sess.Turns)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Update(ctx, "s1", func(*core.Session) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Len())
}

func TestMemoryStore_CleanupEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 10*time.Millisecond, 0)

	require.NoError(t, core.AppendTurn(ctx, store, "old", core.Turn{Role: core.RoleCounterpart, Text: "hi"}))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, core.AppendTurn(ctx, store, "fresh", core.Turn{Role: core.RoleCounterpart, Text: "hi"}))

	require.NoError(t, store.Cleanup(ctx))

	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMemoryStore_NoTTLKeepsSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)

	require.NoError(t, core.AppendTurn(ctx, store, "s1", core.Turn{Role: core.RoleCounterpart, Text: "hi"}))
	require.NoError(t, store.Cleanup(ctx))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.Zero(t, store.Len())
}

func TestMemoryStore_StopEndsCleanupTask(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewMemoryStore(zaptest.NewLogger(t), time.Minute, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	store.Stop()
	store.Stop()
}

func TestMemoryStore_UpdateAfterStop(t *testing.T) {
	store := NewMemoryStore(zaptest.NewLogger(t), 0, 0)
	store.Stop()

	err := core.AppendTurn(context.Background(), store, "s1", core.Turn{Role: core.RoleCounterpart, Text: "hi"})
	assert.ErrorIs(t, err, ErrStoreClosed)
}
