package core

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by SessionStore.Get for an unknown key
var ErrSessionNotFound = errors.New("session not found")

// Classifier decides whether a message is a scam
type Classifier interface {
	// Classify classifies text given the recent turns of the conversation
	Classify(ctx context.Context, text string, history []Turn) (*ClassificationResult, error)
}

// Responder generates persona replies
type Responder interface {
	// GeneratePersonaResponse returns a short first-person reply from a
	// credulous potential victim
	GeneratePersonaResponse(ctx context.Context, text string, scamType ScamType, history []Turn, turnIndex int) (string, error)
}

// LLMClient is a language model backend able to serve both capabilities
type LLMClient interface {
	Classifier
	Responder
}

// SessionStore holds conversation state keyed by session id
type SessionStore interface {
	// Update runs fn against the session stored under key, creating an empty
	// one on miss. Calls for the same key are serialized; changes made by fn
	// are kept only when it returns nil.
	Update(ctx context.Context, key string, fn func(*Session) error) error

	// Get returns a copy of the session stored under key
	Get(ctx context.Context, key string) (*Session, error)

	// Delete removes a session
	Delete(ctx context.Context, key string) error

	// Cleanup removes sessions idle for longer than the store's TTL
	Cleanup(ctx context.Context) error
}
