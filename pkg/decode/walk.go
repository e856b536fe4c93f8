package decode

import "github.com/aretw0/flatval/pkg/heap"

// WalkFunc is called once per occurrence reached by Walk. err carries the
// decode failure for that occurrence, if any; returning a non-nil error stops
// the walk.
type WalkFunc func(ref Ref, n Node, err error) error

// Walk visits every occurrence reachable from the root, depth first, in
// display order (object keys before their values). Shared nodes are visited
// once per occurrence; cycles end in a KindCycle node. The traversal keeps
// its own stack, so a deep heap cannot exhaust the goroutine stack.
func (d *Decoder) Walk(h heap.Heap, fn WalkFunc) error {
	stack := []Ref{{ID: heap.Root}}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := d.Resolve(h, ref)
		if ferr := fn(ref, n, err); ferr != nil {
			return ferr
		}
		if err != nil {
			continue
		}
		switch n.Kind {
		case KindObject:
			for i := len(n.Entries) - 1; i >= 0; i-- {
				stack = append(stack, n.Entries[i].Value, n.Entries[i].Key)
			}
		case KindArray:
			for i := len(n.Items) - 1; i >= 0; i-- {
				stack = append(stack, n.Items[i])
			}
		}
	}
	return nil
}

// Walk walks h with the default Decoder.
func Walk(h heap.Heap, fn WalkFunc) error {
	return std.Walk(h, fn)
}
