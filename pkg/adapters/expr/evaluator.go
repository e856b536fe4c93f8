// Package expr implements a local ports.Evaluator backed by expr-lang/expr.
//
// Each session keeps its own variables. A line of the form `name = <expr>`
// evaluates the expression and binds the result; every successful result is
// also bound to `ans`. Anything else is evaluated as a plain expression.
package expr

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/aretw0/flatval/internal/logging"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/aretw0/flatval/pkg/ports"
	exprlang "github.com/expr-lang/expr"
)

// LastResult is the variable holding the previous successful result.
const LastResult = "ans"

var assignment = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=([^=].*)$`)

// Evaluator evaluates expr programs in per-session scopes.
// Safe for concurrent use.
type Evaluator struct {
	mu     sync.Mutex
	scopes map[string]map[string]any
	logger *slog.Logger
}

// Option configures the Evaluator.
type Option func(*Evaluator)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New creates an expr evaluator with no sessions.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		scopes: make(map[string]map[string]any),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate compiles and runs code against the session's variables.
func (e *Evaluator) Evaluate(ctx context.Context, sessionID, code string) (domain.Output, error) {
	if err := ctx.Err(); err != nil {
		return domain.Output{}, err
	}

	target, source := "", code
	if m := assignment.FindStringSubmatch(code); m != nil {
		target, source = m[1], m[2]
	}

	env := e.snapshot(sessionID)

	program, err := exprlang.Compile(source,
		exprlang.Env(env),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return domain.Failure("SyntaxError", err.Error()), nil
	}

	start := time.Now()
	out, err := exprlang.Run(program, env)
	if err != nil {
		return domain.Failure("Error", err.Error()), nil
	}
	e.logger.Debug("expr evaluated", "session_id", sessionID, "duration", time.Since(start))

	h, err := heap.Encode(out)
	if err != nil {
		return domain.Failure("TypeError", err.Error()), nil
	}

	e.bind(sessionID, target, out)
	return domain.Success(h), nil
}

// Release drops the session's variables.
func (e *Evaluator) Release(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scopes, sessionID)
	return nil
}

// snapshot copies the scope so a running program never sees a concurrent bind.
func (e *Evaluator) snapshot(sessionID string) map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	env := make(map[string]any, len(e.scopes[sessionID]))
	for k, v := range e.scopes[sessionID] {
		env[k] = v
	}
	return env
}

func (e *Evaluator) bind(sessionID, name string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	scope, ok := e.scopes[sessionID]
	if !ok {
		scope = make(map[string]any)
		e.scopes[sessionID] = scope
	}
	if name != "" {
		scope[name] = v
	}
	scope[LastResult] = v
}

var (
	_ ports.Evaluator       = (*Evaluator)(nil)
	_ ports.ContextReleaser = (*Evaluator)(nil)
)
