package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventEntryPending   EventType = "entry_pending"
	EventEntryDone      EventType = "entry_done"
	EventHistoryCleared EventType = "history_cleared"
	EventRenderFault    EventType = "render_fault"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// EntryEvent reports progress of one evaluation.
type EntryEvent struct {
	EventBase
	Entry    Entry         `json:"entry"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ClearEvent reports that a session's history was dropped and replaced.
type ClearEvent struct {
	EventBase
	NextSessionID string `json:"next_session_id"`
}

// FaultEvent reports an entry that could not be rendered.
type FaultEvent struct {
	EventBase
	EntryID string `json:"entry_id"`
	Err     string `json:"error"`
}

// NewBase stamps an event.
func NewBase(t EventType, sessionID string) EventBase {
	return EventBase{Timestamp: time.Now().UTC(), Type: t, SessionID: sessionID}
}

// LifecycleHooks defines callbacks for console observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnEntryPending func(context.Context, *EntryEvent)
	OnEntryDone    func(context.Context, *EntryEvent)
	OnClear        func(context.Context, *ClearEvent)
	OnRenderFault  func(context.Context, *FaultEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnEntryPending: chain(h.OnEntryPending, other.OnEntryPending),
		OnEntryDone:    chain(h.OnEntryDone, other.OnEntryDone),
		OnClear:        chain(h.OnClear, other.OnClear),
		OnRenderFault:  chain(h.OnRenderFault, other.OnRenderFault),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
