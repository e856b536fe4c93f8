package ports

import (
	"context"

	"github.com/aretw0/flatval/pkg/domain"
)

// Evaluator runs user code somewhere else and reports the outcome.
// The console never evaluates code itself.
type Evaluator interface {
	// Evaluate runs code within the context identified by sessionID.
	// A failure reported by the evaluator comes back as an Output with
	// StatusError; a returned error means the request itself failed
	// (transport, decoding) and is shown to the user the same way.
	Evaluate(ctx context.Context, sessionID, code string) (domain.Output, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, sessionID, code string) (domain.Output, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, sessionID, code string) (domain.Output, error) {
	return f(ctx, sessionID, code)
}

// ContextReleaser is implemented by evaluators that keep state per session.
// The session manager calls Release when a session's history is cleared,
// since the session ID is never used again.
type ContextReleaser interface {
	Release(ctx context.Context, sessionID string) error
}
