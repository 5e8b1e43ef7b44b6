package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS honeypot_sessions (
			session_key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON honeypot_sessions(updated_at)`,
	},
	upsertSQL: `INSERT OR REPLACE INTO honeypot_sessions (session_key, data, updated_at) VALUES (?, ?, ?)`,
}

// SQLiteStore is a SQLite implementation of the SessionStore interface
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (or creates) the session database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, ttl, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	store, err := newSQLStore(db, sqliteDialect, logger, ttl, cleanupFreq)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore: store}, nil
}
