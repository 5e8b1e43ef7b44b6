package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/llm-honeypot/internal/core"
	"go.uber.org/zap"
)

// dialect holds the statements that differ between SQL backends
type dialect struct {
	name      string
	schema    []string
	upsertSQL string
}

const (
	selectSessionSQL = `SELECT data FROM honeypot_sessions WHERE session_key = ?`
	deleteSessionSQL = `DELETE FROM honeypot_sessions WHERE session_key = ?`
	cleanupSQL       = `DELETE FROM honeypot_sessions WHERE updated_at < ?`
)

// sqlStore keeps one JSON snapshot per session. Writers for the same key are
// serialized in-process; the database is not used for locking.
type sqlStore struct {
	db          *sql.DB
	dialect     dialect
	locks       *keyedLock
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger, ttl, cleanupFreq time.Duration) (*sqlStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}

	store := &sqlStore{
		db:          db,
		dialect:     d,
		locks:       newKeyedLock(),
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if ttl > 0 && cleanupFreq > 0 {
		store.wg.Add(1)
		go store.startCleanupTask()
	}

	return store, nil
}

// Update runs fn against the session for key, creating it on miss
func (s *sqlStore) Update(ctx context.Context, key string, fn func(*core.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed() {
		return ErrStoreClosed
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	sess, err := s.load(ctx, key)
	if errors.Is(err, core.ErrSessionNotFound) {
		sess = core.NewSession(key)
	} else if err != nil {
		return err
	}

	if err := fn(sess); err != nil {
		return err
	}

	sess.UpdatedAt = time.Now()
	return s.save(ctx, sess)
}

// Get returns the session for key
func (s *sqlStore) Get(ctx context.Context, key string) (*core.Session, error) {
	if s.closed() {
		return nil, ErrStoreClosed
	}
	return s.load(ctx, key)
}

// Delete removes a session
func (s *sqlStore) Delete(ctx context.Context, key string) error {
	if s.closed() {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, deleteSessionSQL, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Cleanup removes sessions idle for longer than the TTL
func (s *sqlStore) Cleanup(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-s.ttl).UnixNano()
	result, err := s.db.ExecContext(ctx, cleanupSQL, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up idle sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up idle sessions",
			zap.String("backend", s.dialect.name),
			zap.Int64("evicted_count", rowsAffected))
	}

	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (s *sqlStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close session database",
				zap.String("backend", s.dialect.name),
				zap.Error(err))
		}
	})
}

func (s *sqlStore) closed() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *sqlStore) load(ctx context.Context, key string) (*core.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, selectSessionSQL, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %q: %w", key, err)
	}
	if sess.Intelligence == nil {
		sess.Intelligence = core.NewIntelligenceBundle()
	}
	return &sess, nil
}

func (s *sqlStore) save(ctx context.Context, sess *core.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.upsertSQL, sess.Key, data, sess.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// startCleanupTask starts a background task to evict idle sessions
func (s *sqlStore) startCleanupTask() {
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
