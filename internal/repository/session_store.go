package repository

import (
	"context"

	"github.com/user/snapbot/internal/entity"
)

// SessionStore persists the session state between runs.
type SessionStore interface {
	// Load returns the stored state. A missing or unreadable record yields an
	// empty state, never an error the caller must treat as fatal.
	Load(ctx context.Context) (*entity.SessionState, error)
	// Save overwrites the stored record.
	Save(ctx context.Context, state *entity.SessionState) error
	Close() error
}
