/*
Package domain contains the core models of the flatval console.

It defines what one evaluation looks like once it has been through the
evaluator, how entries move through their lifecycle and how the history of
a session behaves. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Entry: one input paired with its outcome (pending, success or error).
  - Output: what an evaluator returns (a heap, or a name/message pair).
  - History: the append-only list of finished entries of a session.
  - Navigator: shell-style walking through previous inputs.
  - EvaluationError: the failure shown to the user as "[name] message".
*/
package domain
