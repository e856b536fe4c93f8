package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/flatval/pkg/domain"
)

// Evaluator is a scripted ports.Evaluator. It answers each input with the
// response registered for it, which makes console behaviour reproducible in
// tests and demos without a real evaluator.
type Evaluator struct {
	mu        sync.Mutex
	responses map[string]response
	fallback  func(code string) (domain.Output, error)
	calls     []Call
}

type response struct {
	out domain.Output
	err error
}

// Call records one Evaluate invocation.
type Call struct {
	SessionID string
	Code      string
}

// NewEvaluator creates a scripted evaluator with no responses.
// Unknown inputs fail with a ReferenceError.
func NewEvaluator() *Evaluator {
	return &Evaluator{responses: make(map[string]response)}
}

// Respond registers the output returned for code.
func (e *Evaluator) Respond(code string, out domain.Output) *Evaluator {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[code] = response{out: out}
	return e
}

// RespondError makes Evaluate fail for code as if the transport had broken.
func (e *Evaluator) RespondError(code string, err error) *Evaluator {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[code] = response{err: err}
	return e
}

// Fallback sets the function used for inputs without a registered response.
func (e *Evaluator) Fallback(fn func(code string) (domain.Output, error)) *Evaluator {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = fn
	return e
}

// Evaluate returns the scripted response for code.
func (e *Evaluator) Evaluate(ctx context.Context, sessionID, code string) (domain.Output, error) {
	if err := ctx.Err(); err != nil {
		return domain.Output{}, err
	}

	e.mu.Lock()
	e.calls = append(e.calls, Call{SessionID: sessionID, Code: code})
	resp, ok := e.responses[code]
	fallback := e.fallback
	e.mu.Unlock()

	switch {
	case ok:
		return resp.out, resp.err
	case fallback != nil:
		return fallback(code)
	}
	return domain.Failure("ReferenceError", fmt.Sprintf("%s is not defined", code)), nil
}

// Calls returns the invocations seen so far.
func (e *Evaluator) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}
