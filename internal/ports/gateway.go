package ports

import (
	"context"

	"github.com/mikey/llm-honeypot/internal/core"
)

// Engine handles one inbound counterpart turn for a session
type Engine interface {
	HandleTurn(ctx context.Context, key string, incoming core.Turn, supplied []core.Turn) (*core.EngagementResult, error)
}

// Gateway defines the interface for an inbound message channel
type Gateway interface {
	// Start starts accepting messages
	Start() error

	// Stop stops the gateway
	Stop() error
}
