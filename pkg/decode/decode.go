package decode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
)

// DefaultMaxDepth bounds how far below the root a position may sit.
const DefaultMaxDepth = 1024

// Kind is the semantic kind of a decoded node.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindDate
	KindFunction
	KindString
	KindNumber
	KindBoolean
	KindUndefined
	KindNull
	KindNaN
	KindInfinity
	// KindCycle marks a reference back to a node that is already being
	// decoded on the current path.
	KindCycle
)

var kindNames = [...]string{
	KindObject:    "object",
	KindArray:     "array",
	KindDate:      "date",
	KindFunction:  "function",
	KindString:    "string",
	KindNumber:    "number",
	KindBoolean:   "boolean",
	KindUndefined: "undefined",
	KindNull:      "null",
	KindNaN:       "nan",
	KindInfinity:  "infinity",
	KindCycle:     "cycle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Composite reports whether nodes of this kind have children.
func (k Kind) Composite() bool {
	return k == KindObject || k == KindArray
}

// Ref points at a child together with the path that leads to it.
type Ref struct {
	ID   heap.ID
	Path Path
}

// Entry is one object entry; both sides are nodes.
type Entry struct {
	Key   Ref
	Value Ref
}

// Node is one decoded heap node. Children are referenced, not decoded:
// callers decode a Ref only when they need to show it.
type Node struct {
	ID   heap.ID
	Kind Kind
	// Text is the display string: the literal for leaves, the one-line
	// summary for composites, the marker for cycles.
	Text    string
	Entries []Entry
	Items   []Ref
}

// Len is the number of entries or items of a composite.
func (n Node) Len() int {
	if n.Kind == KindObject {
		return len(n.Entries)
	}
	return len(n.Items)
}

// MissingNodeError reports an identifier absent from the heap.
type MissingNodeError struct {
	ID   heap.ID
	Path []heap.ID
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("missing node %d (via %s)", e.ID, formatIDs(e.Path))
}

func (e *MissingNodeError) Unwrap() error { return domain.ErrMissingNode }

// FaultError reports a node that cannot be decoded.
type FaultError struct {
	ID  heap.ID
	Err error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("node %d: %v", e.ID, e.Err)
}

func (e *FaultError) Unwrap() []error { return []error{domain.ErrRenderFault, e.Err} }

// ErrTooDeep is the cause carried by a FaultError when nesting exceeds the limit.
var ErrTooDeep = errors.New("nesting exceeds depth limit")

// Decoder resolves heap nodes. The zero value is not usable; call New.
type Decoder struct {
	loc      *time.Location
	maxDepth int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLocation sets the time zone dates are printed in (default UTC).
func WithLocation(loc *time.Location) Option {
	return func(d *Decoder) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// New creates a Decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{loc: time.UTC, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var std = New()

// Decode resolves id with the default Decoder.
func Decode(h heap.Heap, id heap.ID, path Path) (Node, error) {
	return std.Decode(h, id, path)
}

// Decode resolves id, reached by following path, into a Node.
//
// When id already appears on path the heap is cyclic; a KindCycle marker is
// returned instead of descending again. The result depends only on the
// arguments.
func (d *Decoder) Decode(h heap.Heap, id heap.ID, path Path) (Node, error) {
	if path.Contains(id) {
		return Node{ID: id, Kind: KindCycle, Text: fmt.Sprintf("[Circular *%d]", id)}, nil
	}
	if path.Depth() >= d.maxDepth {
		return Node{}, &FaultError{ID: id, Err: ErrTooDeep}
	}
	raw, ok := h.Lookup(id)
	if !ok {
		return Node{}, &MissingNodeError{ID: id, Path: path.IDs()}
	}

	node := Node{ID: id}
	switch n := raw.(type) {
	case heap.Object:
		child := path.Push(id)
		node.Kind = KindObject
		node.Text = "{}"
		node.Entries = make([]Entry, len(n.Entries))
		for i, p := range n.Entries {
			node.Entries[i] = Entry{
				Key:   Ref{ID: p.Key, Path: child},
				Value: Ref{ID: p.Value, Path: child},
			}
		}
	case heap.Array:
		child := path.Push(id)
		node.Kind = KindArray
		node.Text = fmt.Sprintf("(%d) []", len(n.Items))
		node.Items = make([]Ref, len(n.Items))
		for i, item := range n.Items {
			node.Items[i] = Ref{ID: item, Path: child}
		}
	case heap.Date:
		node.Kind = KindDate
		node.Text = FormatDate(n.Millis, d.loc)
	case heap.Function:
		node.Kind = KindFunction
		node.Text = n.Body
	case heap.String:
		node.Kind = KindString
		node.Text = FormatString(n.Value)
	case heap.Number:
		node.Kind = KindNumber
		node.Text = FormatNumber(n.Value)
	case heap.Boolean:
		node.Kind = KindBoolean
		node.Text = "false"
		if n.Value {
			node.Text = "true"
		}
	case heap.Undefined:
		node.Kind = KindUndefined
		node.Text = "undefined"
	case heap.Null:
		node.Kind = KindNull
		node.Text = "null"
	case heap.NaN:
		node.Kind = KindNaN
		node.Text = "NaN"
	case heap.Infinity:
		node.Kind = KindInfinity
		node.Text = "Infinity"
		if n.Negative {
			node.Text = "-Infinity"
		}
	case heap.Invalid:
		return Node{}, &FaultError{ID: id, Err: n.Err}
	default:
		return Node{}, &FaultError{ID: id, Err: fmt.Errorf("%w: %T", heap.ErrUnknownTag, raw)}
	}
	return node, nil
}

// Resolve decodes the node a Ref points at.
func (d *Decoder) Resolve(h heap.Heap, ref Ref) (Node, error) {
	return d.Decode(h, ref.ID, ref.Path)
}

func formatIDs(ids []heap.ID) string {
	if len(ids) == 0 {
		return "root"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, " > ")
}
