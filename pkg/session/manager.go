package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/flatval/internal/logging"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/ports"
	"github.com/google/uuid"
)

// InputErrorName is the error name of entries whose input was rejected
// before evaluation.
const InputErrorName = "InputError"

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// Operations on one session are serialized, so entries are appended in the
// order their inputs were submitted. It uses Reference Counting to garbage
// collect unused locks.
type Manager struct {
	store     ports.HistoryStore
	evaluator ports.Evaluator

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	hooks   domain.LifecycleHooks

	maxInput int
	newID    func() string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock outlives a crashed holder.
// It should exceed the evaluator timeout.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = m.hooks.Merge(hooks)
	}
}

// WithMaxInputSize sets the largest accepted input in bytes. Zero disables the limit.
func WithMaxInputSize(n int) Option {
	return func(m *Manager) {
		m.maxInput = n
	}
}

// WithIDGenerator replaces uuid generation for session and entry IDs.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a new Session Manager over a history store and an evaluator.
func NewManager(store ports.HistoryStore, evaluator ports.Evaluator, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		evaluator: evaluator,
		locks:     make(map[string]*lockEntry),
		lockTTL:   60 * time.Second,
		logger:    logging.NewNop(), // Default to no-op
		maxInput:  DefaultMaxInputSize,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create opens a new, empty session and returns its ID.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := m.newID()
	if err := m.store.Create(ctx, id); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	m.logger.DebugContext(logging.WithSessionID(ctx, id), "Session created")
	return id, nil
}

// Submit evaluates input within the session and appends the finished entry
// to its history. Evaluation failures, transport failures and rejected
// input all produce an error entry; the returned error is reserved for
// empty input and failures of the history store.
func (m *Manager) Submit(ctx context.Context, sessionID, input string) (domain.Entry, error) {
	if strings.TrimSpace(input) == "" {
		return domain.Entry{}, domain.ErrEmptyInput
	}

	var done domain.Entry
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		pending := domain.NewPending(m.newID(), input)
		ctx = logging.WithEntryID(logging.WithSessionID(ctx, sessionID), pending.ID)
		if m.hooks.OnEntryPending != nil {
			m.hooks.OnEntryPending(ctx, &domain.EntryEvent{
				EventBase: domain.NewBase(domain.EventEntryPending, sessionID),
				Entry:     pending,
			})
		}

		start := time.Now()
		entry, err := m.evaluate(ctx, sessionID, pending)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		if err := m.store.Append(ctx, sessionID, entry); err != nil {
			return fmt.Errorf("failed to append entry: %w", err)
		}

		m.logger.DebugContext(ctx, "Entry evaluated",
			"status", entry.Status,
			"duration", elapsed,
		)
		if m.hooks.OnEntryDone != nil {
			m.hooks.OnEntryDone(ctx, &domain.EntryEvent{
				EventBase: domain.NewBase(domain.EventEntryDone, sessionID),
				Entry:     entry,
				Duration:  elapsed,
			})
		}
		done = entry
		return nil
	})
	return done, err
}

// evaluate resolves a pending entry. Only a broken state machine returns an error.
func (m *Manager) evaluate(ctx context.Context, sessionID string, pending domain.Entry) (domain.Entry, error) {
	code, err := SanitizeInput(pending.Input, m.maxInput)
	if err != nil {
		m.logger.WarnContext(ctx, "Input rejected", "err", err)
		return pending.Fail(InputErrorName, err.Error())
	}

	out, err := m.evaluator.Evaluate(ctx, sessionID, code)
	if err != nil {
		evalErr := domain.AsEvaluationError(err)
		m.logger.WarnContext(ctx, "Evaluation request failed", "name", evalErr.Name, "err", err)
		return pending.Fail(evalErr.Name, evalErr.Message)
	}
	return pending.Resolve(out)
}

// History returns the session's entries whose input contains filter, oldest first.
func (m *Manager) History(ctx context.Context, sessionID, filter string) ([]domain.Entry, error) {
	entries, err := m.store.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return domain.FilterEntries(entries, filter), nil
}

// Clear drops the session's history and opens a fresh session in its place.
// The old ID is never reused; evaluator state bound to it is released.
func (m *Manager) Clear(ctx context.Context, sessionID string) (string, error) {
	var next string
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		ctx = logging.WithSessionID(ctx, sessionID)
		if err := m.store.Clear(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}

		if r, ok := m.evaluator.(ports.ContextReleaser); ok {
			if err := r.Release(ctx, sessionID); err != nil {
				m.logger.WarnContext(ctx, "Failed to release evaluator context", "err", err)
			}
		}

		var err error
		next, err = m.Create(ctx)
		if err != nil {
			return err
		}

		if m.hooks.OnClear != nil {
			m.hooks.OnClear(ctx, &domain.ClearEvent{
				EventBase:     domain.NewBase(domain.EventHistoryCleared, sessionID),
				NextSessionID: next,
			})
		}
		return nil
	})
	return next, err
}

// Exists reports whether the session is live.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, err := m.store.List(ctx, sessionID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrSessionNotFound):
		return false, nil
	}
	return false, err
}

// Sessions delegates to the store.
func (m *Manager) Sessions(ctx context.Context) ([]string, error) {
	return m.store.Sessions(ctx)
}

// Store returns the underlying history store.
func (m *Manager) Store() ports.HistoryStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
