package flatval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/flatval/internal/logging"
	"github.com/aretw0/flatval/pkg/adapters/memory"
	"github.com/aretw0/flatval/pkg/console"
	"github.com/aretw0/flatval/pkg/decode"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/ports"
	"github.com/aretw0/flatval/pkg/render"
	"github.com/aretw0/flatval/pkg/session"
)

// Console is the high-level entry point of the library. It owns the
// sessions and, per session, the display state of every entry, and answers
// frontends with rendered blocks.
// Safe for concurrent use.
type Console struct {
	sessions *session.Manager
	renderer *render.Renderer
	logger   *slog.Logger
	hooks    domain.LifecycleHooks

	mu    sync.Mutex
	views map[string]*sessionView

	// Collected by options, consumed by New.
	store       ports.HistoryStore
	sessionOpts []session.Option
	decodeOpts  []decode.Option
}

// Option defines a functional option for configuring the Console.
type Option func(*Console)

// WithStore sets the history store (default: in memory).
func WithStore(store ports.HistoryStore) Option {
	return func(c *Console) {
		c.store = store
	}
}

// WithLocker serializes sessions across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Console) {
		c.sessionOpts = append(c.sessionOpts, session.WithLocker(locker))
	}
}

// WithLockTTL bounds how long a distributed lock outlives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Console) {
		c.sessionOpts = append(c.sessionOpts, session.WithLockTTL(ttl))
	}
}

// WithMaxInputSize sets the largest accepted input in bytes.
func WithMaxInputSize(n int) Option {
	return func(c *Console) {
		c.sessionOpts = append(c.sessionOpts, session.WithMaxInputSize(n))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Console) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// WithLocation sets the time zone dates are shown in (default UTC).
func WithLocation(loc *time.Location) Option {
	return func(c *Console) {
		c.decodeOpts = append(c.decodeOpts, decode.WithLocation(loc))
	}
}

// WithMaxDepth bounds how deep an occurrence may be expanded.
func WithMaxDepth(n int) Option {
	return func(c *Console) {
		c.decodeOpts = append(c.decodeOpts, decode.WithMaxDepth(n))
	}
}

// New creates a Console that evaluates through evaluator.
func New(evaluator ports.Evaluator, opts ...Option) *Console {
	c := &Console{
		logger: logging.NewNop(),
		views:  make(map[string]*sessionView),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = memory.NewStore()
	}

	c.renderer = render.New(render.WithDecoder(decode.New(c.decodeOpts...)))
	c.sessions = session.NewManager(c.store, evaluator, append([]session.Option{
		session.WithLogger(c.logger),
		session.WithHooks(c.hooks),
	}, c.sessionOpts...)...)
	return c
}

// Sessions returns the underlying session manager.
func (c *Console) Sessions() *session.Manager {
	return c.sessions
}

// NewSession opens a new, empty session.
func (c *Console) NewSession(ctx context.Context) (string, error) {
	return c.sessions.Create(ctx)
}

// Eval submits code to the session and returns the finished entry, rendered.
func (c *Console) Eval(ctx context.Context, sessionID, code string) (console.Block, error) {
	entry, err := c.sessions.Submit(ctx, sessionID, code)
	if err != nil {
		return console.Block{}, err
	}
	return withView(c, sessionID, func(v *console.View) console.Block {
		return v.Render(entry)
	}), nil
}

// Entries renders the session's history, restricted to inputs containing filter.
func (c *Console) Entries(ctx context.Context, sessionID, filter string) ([]console.Block, error) {
	entries, err := c.sessions.History(ctx, sessionID, filter)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.dropView(sessionID)
		}
		return nil, err
	}

	return withView(c, sessionID, func(v *console.View) []console.Block {
		return v.RenderAll(entries)
	}), nil
}

// Toggle flips one occurrence of an entry and returns the entry rendered again.
func (c *Console) Toggle(ctx context.Context, sessionID, entryID string, pos render.Pos) (console.Block, error) {
	entry, err := c.entry(ctx, sessionID, entryID)
	if err != nil {
		return console.Block{}, err
	}

	var toggleErr error
	b := withView(c, sessionID, func(v *console.View) console.Block {
		b, err := v.Toggle(entry, pos)
		toggleErr = err
		return b
	})
	return b, toggleErr
}

// ExpandAll opens up to limit occurrences of an entry (0 means all). Shared
// subtrees are opened once per occurrence, so callers serving untrusted
// clients should always pass a bound.
func (c *Console) ExpandAll(ctx context.Context, sessionID, entryID string, limit int) (console.Block, error) {
	entry, err := c.entry(ctx, sessionID, entryID)
	if err != nil {
		return console.Block{}, err
	}
	return withView(c, sessionID, func(v *console.View) console.Block {
		return v.ExpandAll(entry, limit)
	}), nil
}

// Clear drops the session's history and display state and returns the ID
// of the fresh session that replaces it.
func (c *Console) Clear(ctx context.Context, sessionID string) (string, error) {
	next, err := c.sessions.Clear(ctx, sessionID)
	if err != nil {
		return "", err
	}
	c.dropView(sessionID)
	return next, nil
}

func (c *Console) entry(ctx context.Context, sessionID, entryID string) (domain.Entry, error) {
	entries, err := c.sessions.History(ctx, sessionID, "")
	if err != nil {
		return domain.Entry{}, err
	}
	e, ok := domain.NewHistory(entries).Get(entryID)
	if !ok {
		return domain.Entry{}, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, entryID)
	}
	return e, nil
}

// sessionView is the display state of one session. Its lock serializes
// renders of that session only, so a long expansion never stalls the others.
type sessionView struct {
	mu       sync.Mutex
	view     *console.View
	lastUsed time.Time
}

// withView runs fn on the session's view, creating it on first use.
func withView[T any](c *Console, sessionID string, fn func(*console.View) T) T {
	c.mu.Lock()
	sv, ok := c.views[sessionID]
	if !ok {
		sv = &sessionView{view: console.NewView(
			console.WithRenderer(c.renderer),
			console.WithFaultHandler(c.faultHandler(sessionID)),
		)}
		c.views[sessionID] = sv
	}
	sv.lastUsed = time.Now()
	c.mu.Unlock()

	sv.mu.Lock()
	defer sv.mu.Unlock()
	return fn(sv.view)
}

func (c *Console) dropView(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, sessionID)
}

// Prune drops the display state of sessions that no longer exist, such as
// those expired by the store, and of sessions left unused for longer than
// idle (0 keeps idle ones). It returns how many views were dropped.
func (c *Console) Prune(ctx context.Context, idle time.Duration) (int, error) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.views))
	var stale []string
	for id, sv := range c.views {
		if idle > 0 && time.Since(sv.lastUsed) > idle {
			stale = append(stale, id)
			continue
		}
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		ok, err := c.sessions.Exists(ctx, id)
		if err != nil {
			return len(stale), err
		}
		if !ok {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		c.dropView(id)
	}
	if len(stale) > 0 {
		c.logger.Debug("Pruned session views", "count", len(stale))
	}
	return len(stale), nil
}

func (c *Console) faultHandler(sessionID string) console.FaultHandler {
	return func(entryID string, err error) {
		ctx := logging.WithEntryID(logging.WithSessionID(context.Background(), sessionID), entryID)
		c.logger.WarnContext(ctx, "Could not render entry", "err", err)
		if c.hooks.OnRenderFault != nil {
			c.hooks.OnRenderFault(ctx, &domain.FaultEvent{
				EventBase: domain.NewBase(domain.EventRenderFault, sessionID),
				EntryID:   entryID,
				Err:       err.Error(),
			})
		}
	}
}

// Exists reports whether the session is live. The display state of a
// session found dead is dropped.
func (c *Console) Exists(ctx context.Context, sessionID string) (bool, error) {
	ok, err := c.sessions.Exists(ctx, sessionID)
	if err == nil && !ok {
		c.dropView(sessionID)
	}
	return ok, err
}
