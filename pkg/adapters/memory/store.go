package memory

import (
	"context"
	"sync"

	"github.com/aretw0/flatval/pkg/domain"
)

// Store implements ports.HistoryStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]domain.Entry
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.Entry),
	}
}

// Create registers an empty session.
func (s *Store) Create(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[sessionID]; !ok {
		s.data[sessionID] = []domain.Entry{}
	}
	return nil
}

// Append adds a finished entry to the session.
func (s *Store) Append(ctx context.Context, sessionID string, entry domain.Entry) error {
	if !entry.Status.Terminal() {
		return domain.ErrEntryPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = append(s.data[sessionID], entry)
	return nil
}

// List returns a copy of the session's entries so callers cannot reorder
// the stored history. Heaps are shared; they are read-only after creation.
func (s *Store) List(ctx context.Context, sessionID string) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append([]domain.Entry(nil), entries...), nil
}

// Clear removes the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// Sessions returns active sessions.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
