package heap

import (
	"fmt"
	"math"
)

// Builder assembles a Heap. IDs are handed out in allocation order, so the
// first Reserve (or the first value added) becomes Root.
//
// Builder is not safe for concurrent use.
type Builder struct {
	nodes Heap
	next  ID
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{nodes: make(Heap)}
}

// Reserve allocates an identifier whose node is supplied later with Set.
func (b *Builder) Reserve() ID {
	id := b.next
	b.next++
	return id
}

// Set stores n under a previously reserved id.
func (b *Builder) Set(id ID, n Node) {
	if id >= b.next {
		panic(fmt.Sprintf("heap: Set on unreserved id %d", id))
	}
	b.nodes[id] = n
}

// Add allocates an identifier for n.
func (b *Builder) Add(n Node) ID {
	id := b.Reserve()
	b.nodes[id] = n
	return id
}

// Number adds f, routing NaN and infinities to their dedicated tags.
func (b *Builder) Number(f float64) ID {
	return b.Add(NumberNode(f))
}

// String adds a string node.
func (b *Builder) String(s string) ID {
	return b.Add(String{Value: s})
}

// Bool adds a boolean node.
func (b *Builder) Bool(v bool) ID {
	return b.Add(Boolean{Value: v})
}

// Array adds an array of already-added elements.
func (b *Builder) Array(items ...ID) ID {
	return b.Add(Array{Items: items})
}

// Object adds an object from alternating key and value identifiers.
func (b *Builder) Object(kv ...ID) ID {
	if len(kv)%2 != 0 {
		panic("heap: Object needs key/value pairs")
	}
	obj := Object{Entries: make([]Pair, 0, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		obj.Entries = append(obj.Entries, Pair{Key: kv[i], Value: kv[i+1]})
	}
	return b.Add(obj)
}

// Heap returns the assembled heap. The Builder must not be used afterwards.
func (b *Builder) Heap() Heap {
	h := b.nodes
	b.nodes = nil
	return h
}

// NumberNode picks the node a float64 travels as.
func NumberNode(f float64) Node {
	switch {
	case math.IsNaN(f):
		return NaN{}
	case math.IsInf(f, 1):
		return Infinity{}
	case math.IsInf(f, -1):
		return Infinity{Negative: true}
	}
	return Number{Value: f}
}
