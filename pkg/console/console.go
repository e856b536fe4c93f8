// Package console turns evaluation entries into displayable blocks.
//
// It is the fault boundary of the console: whatever a heap contains, and
// whatever the decoder or renderer does with it, rendering one entry yields
// a Block. A failure is confined to the entry it happened in; the entries
// around it render normally.
package console

import (
	"errors"
	"fmt"

	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/render"
)

const (
	// Placeholder is shown while an entry is still being evaluated.
	Placeholder = "…"
	// FallbackText replaces the output of an entry that could not be rendered.
	FallbackText = "Could not render"
)

// ErrInvalidPosition is returned when a toggle names a malformed position.
var ErrInvalidPosition = errors.New("invalid position")

// Block is the displayable form of one entry.
type Block struct {
	EntryID string
	Input   string
	Status  domain.Status

	// Item is the rendered tree of a successful entry.
	Item *render.Item
	// Text is the line shown when there is no tree: the error message,
	// the pending placeholder or the fallback.
	Text string

	IsError  bool
	Fallback bool
	// Err is the cause of a fallback. It is logged, never displayed.
	Err error
}

// RenderEntry renders e with its display state. s may be nil, meaning
// everything is collapsed. RenderEntry never panics.
func RenderEntry(r *render.Renderer, e domain.Entry, s *render.State) (b Block) {
	b = Block{EntryID: e.ID, Input: e.Input, Status: e.Status}
	defer func() {
		if p := recover(); p != nil {
			b = fallback(b, fmt.Errorf("%w: panic: %v", domain.ErrRenderFault, p))
		}
	}()

	switch e.Status {
	case domain.StatusPending:
		b.Text = Placeholder
		return b
	case domain.StatusError:
		evalErr := e.Error
		if evalErr == nil {
			evalErr = &domain.EvaluationError{Name: "Error", Message: "evaluation failed without details"}
		}
		b.Text = evalErr.Error()
		b.IsError = true
		return b
	case domain.StatusSuccess:
	default:
		return fallback(b, fmt.Errorf("%w: unknown entry status %q", domain.ErrRenderFault, e.Status))
	}

	it, err := r.Render(e.Heap, s)
	if err != nil {
		return fallback(b, err)
	}
	b.Item = it
	b.Text = it.Text
	return b
}

func fallback(b Block, err error) Block {
	b.Item = nil
	b.Text = FallbackText
	b.Fallback = true
	b.IsError = b.Status == domain.StatusError
	b.Err = err
	return b
}
