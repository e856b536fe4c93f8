// Package jq implements a local ports.Evaluator backed by itchyny/gojq.
//
// Every input is a jq program run against null. The previous successful
// result of the session is available as $ans. A program with no output
// yields undefined; several outputs are collected into an array.
package jq

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/flatval/internal/logging"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/aretw0/flatval/pkg/ports"
	"github.com/itchyny/gojq"
)

// LastResult is the variable holding the previous successful result.
const LastResult = "$ans"

// Evaluator runs jq programs. Compiled programs are cached and shared
// across sessions. Safe for concurrent use.
type Evaluator struct {
	mu     sync.RWMutex
	cache  map[string]*gojq.Code
	last   map[string]any
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

// New creates a jq evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		cache:  make(map[string]*gojq.Code),
		last:   make(map[string]any),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs code and encodes its outputs.
func (e *Evaluator) Evaluate(ctx context.Context, sessionID, code string) (domain.Output, error) {
	if err := ctx.Err(); err != nil {
		return domain.Output{}, err
	}

	compiled, err := e.getOrCompile(code)
	if err != nil {
		return domain.Failure("SyntaxError", err.Error()), nil
	}

	e.mu.RLock()
	ans := e.last[sessionID]
	e.mu.RUnlock()

	iter := compiled.RunWithContext(ctx, nil, ans)

	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Output{}, ctxErr
			}
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return domain.Failure("Error", err.Error()), nil
		}
		results = append(results, v)
	}

	var result any
	switch len(results) {
	case 0:
		result = heap.UndefinedValue
	case 1:
		result = results[0]
	default:
		result = results
	}

	h, err := heap.Encode(result)
	if err != nil {
		return domain.Failure("TypeError", err.Error()), nil
	}

	if len(results) > 0 {
		e.mu.Lock()
		e.last[sessionID] = result
		e.mu.Unlock()
	}
	e.logger.Debug("jq evaluated", "session_id", sessionID, "outputs", len(results))
	return domain.Success(h), nil
}

// Release forgets the session's last result.
func (e *Evaluator) Release(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.last, sessionID)
	return nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *Evaluator) getOrCompile(code string) (*gojq.Code, error) {
	e.mu.RLock()
	if c, ok := e.cache[code]; ok {
		e.mu.RUnlock()
		return c, nil
	}
	e.mu.RUnlock()

	query, err := gojq.Parse(code)
	if err != nil {
		return nil, err
	}
	compiled, err := gojq.Compile(query,
		gojq.WithVariables([]string{LastResult}),
		// No access to the host environment through $ENV or env.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[code] = compiled
	return compiled, nil
}

var (
	_ ports.Evaluator       = (*Evaluator)(nil)
	_ ports.ContextReleaser = (*Evaluator)(nil)
)
