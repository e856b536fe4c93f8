/*
Package flatval is a REPL console for results that arrive as flat heaps.

An evaluator (remote or local) runs the code a user types and returns its
result as a heap: a map from integer IDs to tagged nodes, where composites
reference their children by ID. flatval decodes such heaps lazily into a tree
the user can expand one occurrence at a time, survives shared and cyclic
structure without unbounded recursion, and confines a malformed node to the
entry that contains it.

# Concept

The console is built from small layers:

  - pkg/heap: the wire format and the tagged node variants.
  - pkg/decode: one node at a time, with a cycle-safe path.
  - pkg/render: the visible tree for a heap and its display state.
  - pkg/console: the fault boundary around one entry.
  - pkg/session: ordered submissions, history and session regeneration.

The Console type in this package wires them together for frontends such as
the terminal REPL and the HTTP server in cmd/flatval.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/flatval"
		"github.com/aretw0/flatval/pkg/adapters/jq"
	)

	func main() {
		c := flatval.New(jq.New())
		ctx := context.Background()

		sid, err := c.NewSession(ctx)
		if err != nil {
			log.Fatal(err)
		}

		block, err := c.Eval(ctx, sid, `[1, "x"]`)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(block.Text) // (2) []

		// Expand the root occurrence.
		block, err = c.Toggle(ctx, sid, block.EntryID, "$")
		if err != nil {
			log.Fatal(err)
		}
	}
*/
package flatval
