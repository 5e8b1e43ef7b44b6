package session

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/llm-honeypot/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the SessionStore interface
type MemoryStore struct {
	entries     map[string]*memoryEntry
	mu          sync.Mutex
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// memoryEntry guards one session. refs counts callers currently holding the
// entry and is only touched with the store mutex held.
type memoryEntry struct {
	mu      sync.Mutex
	session *core.Session
	refs    int
}

// NewMemoryStore creates a new in-memory session store. Sessions idle for
// longer than ttl are evicted every cleanupFreq; a zero ttl keeps sessions
// for the life of the process.
func NewMemoryStore(logger *zap.Logger, ttl, cleanupFreq time.Duration) *MemoryStore {
	store := &MemoryStore{
		entries:     make(map[string]*memoryEntry),
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if ttl > 0 && cleanupFreq > 0 {
		store.wg.Add(1)
		go store.startCleanupTask()
	}

	return store
}

// Update runs fn against the session for key, creating it on miss
func (s *MemoryStore) Update(ctx context.Context, key string, fn func(*core.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed() {
		return ErrStoreClosed
	}

	e := s.acquire(key, true)
	defer s.release(e)

	e.mu.Lock()
	defer e.mu.Unlock()

	var working *core.Session
	if e.session != nil {
		working = e.session.Clone()
	} else {
		working = core.NewSession(key)
	}

	if err := fn(working); err != nil {
		return err
	}

	working.UpdatedAt = time.Now()
	e.session = working
	return nil
}

// Get returns a copy of the session for key
func (s *MemoryStore) Get(ctx context.Context, key string) (*core.Session, error) {
	e := s.acquire(key, false)
	if e == nil {
		return nil, core.ErrSessionNotFound
	}
	defer s.release(e)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, core.ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

// Delete removes a session. It waits for an Update in flight on the same key,
// so that update is never lost to a parallel one on a fresh entry.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	e := s.acquire(key, false)
	if e == nil {
		return nil
	}

	e.mu.Lock()
	e.session = nil
	e.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	e.refs--
	if e.refs == 0 && s.entries[key] == e {
		delete(s.entries, key)
	}
	return nil
}

// Cleanup removes sessions idle for longer than the TTL. Entries in use are
// left alone.
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	evicted := 0

	for key, e := range s.entries {
		if e.refs > 0 {
			continue
		}
		if e.session == nil || (s.ttl > 0 && now.Sub(e.session.UpdatedAt) > s.ttl) {
			delete(s.entries, key)
			evicted++
		}
	}

	s.logger.Debug("Cleaned up idle sessions", zap.Int("evicted_count", evicted))
	return nil
}

// Len returns the number of stored sessions
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop stops the background cleanup task. Later updates fail with
// ErrStoreClosed.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *MemoryStore) closed() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *MemoryStore) acquire(key string, create bool) *memoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		if !create {
			return nil
		}
		e = &memoryEntry{}
		s.entries[key] = e
	}
	e.refs++
	return e
}

func (s *MemoryStore) release(e *memoryEntry) {
	s.mu.Lock()
	e.refs--
	s.mu.Unlock()
}

// startCleanupTask starts a background task to evict idle sessions
func (s *MemoryStore) startCleanupTask() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up sessions", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}
