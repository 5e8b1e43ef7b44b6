package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/llm-honeypot/internal/adapters/session"
	"github.com/mikey/llm-honeypot/internal/config"
	"github.com/mikey/llm-honeypot/internal/core"
	"go.uber.org/zap"
)

// SessionFactory creates session stores based on configuration
type SessionFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSessionFactory creates a new session factory
func NewSessionFactory(cfg *config.Config, logger *zap.Logger) *SessionFactory {
	return &SessionFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSessionStore creates a session store based on the configuration
func (f *SessionFactory) CreateSessionStore() (core.SessionStore, error) {
	sessionCfg, err := f.cfg.GetSession()
	if err != nil {
		return nil, fmt.Errorf("invalid session configuration: %w", err)
	}

	logger := f.logger.Named("session")
	switch sessionCfg.Type {
	case "memory":
		return session.NewMemoryStore(logger, sessionCfg.TTL, sessionCfg.CleanupFrequency), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sessionCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return session.NewSQLiteStore(sessionCfg.SQLitePath, logger, sessionCfg.TTL, sessionCfg.CleanupFrequency)
	case "mysql":
		return session.NewMySQLStore(sessionCfg.MySQLDSN, logger, sessionCfg.TTL, sessionCfg.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", sessionCfg.Type)
	}
}
