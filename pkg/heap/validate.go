package heap

import (
	"fmt"
	"math"
)

// Problem describes one structural defect found by Validate.
type Problem struct {
	ID     ID
	Reason string
}

func (p Problem) String() string {
	return fmt.Sprintf("node %d: %s", p.ID, p.Reason)
}

// Validate checks the producer contract: a root exists, every referenced
// identifier exists, records are understood, numbers are finite and no cycle
// is reachable from the root. Consumers never depend on it; it exists for
// tooling and diagnostics.
func Validate(h Heap) []Problem {
	var problems []Problem
	if _, ok := h[Root]; !ok {
		problems = append(problems, Problem{ID: Root, Reason: "root is missing"})
	}

	for _, id := range h.IDs() {
		switch n := h[id].(type) {
		case Invalid:
			problems = append(problems, Problem{ID: id, Reason: fmt.Sprintf("invalid %q record: %v", n.Type, n.Err)})
		case Number:
			if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
				problems = append(problems, Problem{ID: id, Reason: "number tag holds a non-finite value"})
			}
		}
		for _, child := range Children(h[id]) {
			if _, ok := h[child]; !ok {
				problems = append(problems, Problem{ID: id, Reason: fmt.Sprintf("references missing node %d", child)})
			}
		}
	}

	if cyc, ok := findCycle(h); ok {
		problems = append(problems, Problem{ID: cyc, Reason: "is part of a reference cycle"})
	}
	return problems
}

// findCycle runs an iterative three-colour DFS from Root.
func findCycle(h Heap) (ID, bool) {
	const (
		white = iota
		grey
		black
	)
	colour := make(map[ID]int, len(h))
	type frame struct {
		id   ID
		next int
	}
	if _, ok := h[Root]; !ok {
		return 0, false
	}
	stack := []frame{{id: Root}}
	colour[Root] = grey
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := Children(h[top.id])
		if top.next >= len(children) {
			colour[top.id] = black
			stack = stack[:len(stack)-1]
			continue
		}
		child := children[top.next]
		top.next++
		if _, ok := h[child]; !ok {
			continue
		}
		switch colour[child] {
		case grey:
			return child, true
		case white:
			colour[child] = grey
			stack = append(stack, frame{id: child})
		}
	}
	return 0, false
}
