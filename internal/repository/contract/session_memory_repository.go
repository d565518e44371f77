package contract

import (
	"context"
	"errors"

	"ai-medchat-be/pkg/store"
)

// ErrCorruptRecord marks a stored record that could not be decoded
var ErrCorruptRecord = errors.New("corrupt session record")

// SessionMemoryRepository persists Session Memory records by session id.
// Implementations hand out copies; callers own what they receive.
type SessionMemoryRepository interface {
	// Get returns (nil, nil) when no record exists
	Get(ctx context.Context, sessionID string) (*store.SessionMemory, error)
	Save(ctx context.Context, memory *store.SessionMemory) error
	// List returns every stored record ordered by session id
	List(ctx context.Context) ([]*store.SessionMemory, error)
	Delete(ctx context.Context, sessionID string) error
}
