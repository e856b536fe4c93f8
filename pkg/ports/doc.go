/*
Package ports defines the driven ports (interfaces) of the flatval console.

These interfaces decouple the console from the places code is evaluated and
history is kept, so the same session logic runs against a remote evaluator
or a local one, in memory or on Redis.

# Key Interfaces

  - Evaluator: sends code away and returns a heap or an evaluation error.
  - HistoryStore: keeps the finished entries of each session.
  - DistributedLocker: serializes access to a session across replicas.
*/
package ports
