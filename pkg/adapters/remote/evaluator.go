// Package remote implements ports.Evaluator against an evaluation service
// reachable over HTTP.
//
// The request is a JSON object {"contextId": <session>, "code": <input>}
// POSTed to the service URL. The service answers with either
// {"result": <heap>} or {"error": {"name": ..., "message": ...}}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/flatval/internal/logging"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
)

// Error names reported when the request itself fails. They mirror the
// error classes a browser fetch would raise.
const (
	NetworkError = "NetworkError"
	HTTPError    = "HTTPError"
	SyntaxError  = "SyntaxError"
)

// maxErrorBody bounds how much of a non-2xx body ends up in the message.
const maxErrorBody = 512

type request struct {
	ContextID string `json:"contextId"`
	Code      string `json:"code"`
}

type response struct {
	Result *heap.Heap              `json:"result"`
	Error  *domain.EvaluationError `json:"error"`
}

// Evaluator posts code to a remote evaluation service.
type Evaluator struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// Option configures the Evaluator.
type Option func(*Evaluator)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Evaluator) {
		e.client = c
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		e.client.Timeout = d
	}
}

// WithLogger configures a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New creates an evaluator for the service at url.
func New(url string, opts ...Option) *Evaluator {
	e := &Evaluator{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate sends code and decodes the service's answer. Transport failures
// come back as *domain.EvaluationError values named after their class.
func (e *Evaluator) Evaluate(ctx context.Context, sessionID, code string) (domain.Output, error) {
	body, err := json.Marshal(request{ContextID: sessionID, Code: code})
	if err != nil {
		return domain.Output{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return domain.Output{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Output{}, ctxErr
		}
		return domain.Output{}, &domain.EvaluationError{Name: NetworkError, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := resp.Status
		if len(bytes.TrimSpace(snippet)) > 0 {
			msg += ": " + string(bytes.TrimSpace(snippet))
		}
		return domain.Output{}, &domain.EvaluationError{Name: HTTPError, Message: msg}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Output{}, &domain.EvaluationError{Name: SyntaxError, Message: err.Error()}
	}

	switch {
	case out.Error != nil:
		if out.Error.Name == "" {
			out.Error.Name = "Error"
		}
		return domain.Output{Status: domain.StatusError, Error: out.Error}, nil
	case out.Result != nil:
		if problems := heap.Validate(*out.Result); len(problems) > 0 {
			e.logger.Debug("Evaluator returned a heap with problems",
				"session_id", sessionID,
				"problems", len(problems),
				"first", problems[0].String(),
			)
		}
		return domain.Success(*out.Result), nil
	}
	return domain.Output{}, &domain.EvaluationError{Name: SyntaxError, Message: "response has neither result nor error"}
}
