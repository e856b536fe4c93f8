package console

import (
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/render"
)

// FaultHandler is told once about every entry that fell back.
type FaultHandler func(entryID string, err error)

// View holds the display state of every entry of one session.
// States are created on the first toggle and dropped with Forget or Reset.
//
// View is not safe for concurrent use; its owner serializes access.
type View struct {
	renderer *render.Renderer
	states   map[string]*render.State
	reported map[string]struct{}
	onFault  FaultHandler
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithRenderer sets the renderer.
func WithRenderer(r *render.Renderer) ViewOption {
	return func(v *View) {
		if r != nil {
			v.renderer = r
		}
	}
}

// WithFaultHandler registers a callback for fallbacks.
func WithFaultHandler(fn FaultHandler) ViewOption {
	return func(v *View) {
		v.onFault = fn
	}
}

// NewView creates an empty view.
func NewView(opts ...ViewOption) *View {
	v := &View{
		renderer: render.New(),
		states:   make(map[string]*render.State),
		reported: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// State returns the entry's display state, creating it if needed.
func (v *View) State(entryID string) *render.State {
	s, ok := v.states[entryID]
	if !ok {
		s = render.NewState()
		v.states[entryID] = s
	}
	return s
}

// Render renders one entry. An entry that falls back is reported to the
// fault handler the first time only; rendering it again stays quiet.
func (v *View) Render(e domain.Entry) Block {
	b := RenderEntry(v.renderer, e, v.states[e.ID])
	if !b.Fallback {
		return b
	}
	if _, seen := v.reported[e.ID]; !seen {
		v.reported[e.ID] = struct{}{}
		if v.onFault != nil {
			v.onFault(e.ID, b.Err)
		}
	}
	return b
}

// RenderAll renders entries independently, in order.
func (v *View) RenderAll(entries []domain.Entry) []Block {
	blocks := make([]Block, len(entries))
	for i, e := range entries {
		blocks[i] = v.Render(e)
	}
	return blocks
}

// Toggle flips one occurrence of the entry and renders the entry again.
func (v *View) Toggle(e domain.Entry, pos render.Pos) (Block, error) {
	if !pos.Valid() {
		return Block{}, ErrInvalidPosition
	}
	v.State(e.ID).Toggle(pos)
	return v.Render(e), nil
}

// ExpandAll opens up to limit occurrences of a successful entry.
func (v *View) ExpandAll(e domain.Entry, limit int) Block {
	if e.Status == domain.StatusSuccess {
		v.renderer.ExpandAll(e.Heap, v.State(e.ID), limit)
	}
	return v.Render(e)
}

// Forget drops the entry's display state.
func (v *View) Forget(entryID string) {
	delete(v.states, entryID)
	delete(v.reported, entryID)
}

// Reset drops every display state.
func (v *View) Reset() {
	clear(v.states)
	clear(v.reported)
}
