package ports

import (
	"context"

	"github.com/aretw0/flatval/pkg/domain"
)

// HistoryStore keeps the finished entries of each session.
// A session lives until it is cleared (or expires, if the backend supports it);
// there is no persistence across page loads because every load opens a new one.
type HistoryStore interface {
	// Create registers an empty session. Creating an existing session is a no-op.
	Create(ctx context.Context, sessionID string) error

	// Append adds a terminal entry at the end of the session's history,
	// creating the session if needed.
	Append(ctx context.Context, sessionID string, entry domain.Entry) error

	// List returns the session's entries, oldest first.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	List(ctx context.Context, sessionID string) ([]domain.Entry, error)

	// Clear drops the session and its entries.
	Clear(ctx context.Context, sessionID string) error

	// Sessions returns the IDs of live sessions.
	Sessions(ctx context.Context) ([]string, error)
}
