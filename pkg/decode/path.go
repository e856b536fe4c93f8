package decode

import "github.com/aretw0/flatval/pkg/heap"

// Path is the chain of identifiers from the root down to the parent of the
// position being decoded. It is immutable: Push returns a new Path and the
// receiver is left untouched, so sibling branches never observe each other.
type Path struct {
	top *frame
}

type frame struct {
	id     heap.ID
	parent *frame
	depth  int
}

// Push returns the path extended by id.
func (p Path) Push(id heap.ID) Path {
	return Path{top: &frame{id: id, parent: p.top, depth: p.Depth() + 1}}
}

// Depth is the number of identifiers on the path.
func (p Path) Depth() int {
	if p.top == nil {
		return 0
	}
	return p.top.depth
}

// Contains reports whether id is already being decoded further up. It walks
// the chain, so it costs O(Depth); the depth limit keeps that bounded.
func (p Path) Contains(id heap.ID) bool {
	for f := p.top; f != nil; f = f.parent {
		if f.id == id {
			return true
		}
	}
	return false
}

// IDs lists the path from the root outwards.
func (p Path) IDs() []heap.ID {
	ids := make([]heap.ID, p.Depth())
	for f := p.top; f != nil; f = f.parent {
		ids[f.depth-1] = f.id
	}
	return ids
}
