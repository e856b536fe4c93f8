package domain

import (
	"errors"
	"fmt"
)

// ErrMissingNode is returned when a heap references an identifier it does not hold.
var ErrMissingNode = errors.New("missing node")

// ErrRenderFault covers every other failure while decoding or rendering a heap.
var ErrRenderFault = errors.New("render fault")

// ErrEntryTerminal is returned when a finished entry is asked to change.
var ErrEntryTerminal = errors.New("entry already in a terminal state")

// ErrEntryPending is returned when a history is asked to hold an unfinished entry.
var ErrEntryPending = errors.New("entry is still pending")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrEntryNotFound is returned when an entry ID is not part of a session's history.
var ErrEntryNotFound = errors.New("entry not found")

// ErrEmptyInput is returned when there is no code to evaluate.
var ErrEmptyInput = errors.New("empty input")

// EvaluationError is the failure reported for an evaluation, either by the
// evaluator itself or by the transport that carried the request.
type EvaluationError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Name, e.Message)
}

// AsEvaluationError maps any error onto the name/message pair shown to the user.
func AsEvaluationError(err error) *EvaluationError {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr
	}
	return &EvaluationError{Name: "Error", Message: err.Error()}
}
