package render

import (
	"errors"
	"fmt"

	"github.com/aretw0/flatval/pkg/decode"
	"github.com/aretw0/flatval/pkg/heap"
)

// Item is one rendered occurrence. For an object entry the Item is the
// value side and Key holds the rendered key.
type Item struct {
	Pos  Pos
	Kind decode.Kind
	// Text is the leaf literal, the composite summary or the fault marker.
	Text string
	// Label prefixes array elements ("0: ").
	Label string
	Key   *Item

	Expandable bool
	Expanded   bool
	// Children and Footer are only set when the item is expanded.
	Children []*Item
	Footer   string

	// Fault holds a failure contained to this occurrence.
	Fault error
}

// Renderer turns a heap and its display state into Items.
type Renderer struct {
	dec *decode.Decoder
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDecoder sets the decoder used to resolve nodes.
func WithDecoder(d *decode.Decoder) Option {
	return func(r *Renderer) {
		if d != nil {
			r.dec = d
		}
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{dec: decode.New()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render builds the visible tree of h. Only expanded composites have their
// children decoded, so the cost follows what is on screen rather than the
// size of the heap.
//
// A missing node is contained to the occurrence that references it. Any
// other decode failure aborts the render and is returned.
func (r *Renderer) Render(h heap.Heap, s *State) (*Item, error) {
	return r.render(h, s, decode.Ref{ID: heap.Root}, RootPos)
}

func (r *Renderer) render(h heap.Heap, s *State, ref decode.Ref, pos Pos) (*Item, error) {
	n, err := r.dec.Resolve(h, ref)
	if err != nil {
		var missing *decode.MissingNodeError
		if errors.As(err, &missing) {
			return &Item{Pos: pos, Text: fmt.Sprintf("<missing #%d>", missing.ID), Fault: err}, nil
		}
		return nil, fmt.Errorf("render %s: %w", pos, err)
	}

	it := &Item{Pos: pos, Kind: n.Kind, Text: n.Text}
	if !n.Kind.Composite() {
		return it, nil
	}
	it.Expandable = true
	it.Expanded = s.Expanded(pos)
	if !it.Expanded {
		return it, nil
	}

	switch n.Kind {
	case decode.KindObject:
		it.Children = make([]*Item, 0, len(n.Entries))
		for i, e := range n.Entries {
			key, err := r.render(h, s, e.Key, pos.Key(i))
			if err != nil {
				return nil, err
			}
			val, err := r.render(h, s, e.Value, pos.Value(i))
			if err != nil {
				return nil, err
			}
			val.Key = key
			it.Children = append(it.Children, val)
		}
	case decode.KindArray:
		it.Children = make([]*Item, 0, len(n.Items))
		for i, ref := range n.Items {
			child, err := r.render(h, s, ref, pos.Index(i))
			if err != nil {
				return nil, err
			}
			child.Label = fmt.Sprintf("%d: ", i)
			it.Children = append(it.Children, child)
		}
		it.Footer = fmt.Sprintf("length: %d", len(n.Items))
	}
	return it, nil
}

// ExpandAll opens every composite occurrence reachable from the root, up to
// limit occurrences (0 means no limit), and returns how many were opened.
// Cycle markers are never opened.
func (r *Renderer) ExpandAll(h heap.Heap, s *State, limit int) int {
	type frame struct {
		ref decode.Ref
		pos Pos
	}
	opened := 0
	stack := []frame{{ref: decode.Ref{ID: heap.Root}, pos: RootPos}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := r.dec.Resolve(h, f.ref)
		if err != nil || !n.Kind.Composite() {
			continue
		}
		if limit > 0 && opened >= limit {
			break
		}
		s.Set(f.pos, true)
		opened++

		switch n.Kind {
		case decode.KindObject:
			for i := len(n.Entries) - 1; i >= 0; i-- {
				stack = append(stack,
					frame{ref: n.Entries[i].Value, pos: f.pos.Value(i)},
					frame{ref: n.Entries[i].Key, pos: f.pos.Key(i)},
				)
			}
		case decode.KindArray:
			for i := len(n.Items) - 1; i >= 0; i-- {
				stack = append(stack, frame{ref: n.Items[i], pos: f.pos.Index(i)})
			}
		}
	}
	return opened
}
