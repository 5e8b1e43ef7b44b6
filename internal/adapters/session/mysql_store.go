package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS honeypot_sessions (
			session_key VARCHAR(255) PRIMARY KEY,
			data MEDIUMBLOB NOT NULL,
			updated_at BIGINT NOT NULL,
			INDEX idx_sessions_updated_at (updated_at)
		)`,
	},
	upsertSQL: `INSERT INTO honeypot_sessions (session_key, data, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			data = VALUES(data),
			updated_at = VALUES(updated_at)`,
}

// MySQLStore is a MySQL implementation of the SessionStore interface
type MySQLStore struct {
	*sqlStore
}

// NewMySQLStore connects to the database described by dsn
func NewMySQLStore(dsn string, logger *zap.Logger, ttl, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	store, err := newSQLStore(db, mysqlDialect, logger, ttl, cleanupFreq)
	if err != nil {
		return nil, err
	}
	return &MySQLStore{sqlStore: store}, nil
}
