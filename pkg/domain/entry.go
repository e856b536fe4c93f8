package domain

import (
	"time"

	"github.com/aretw0/flatval/pkg/heap"
)

// Status is the lifecycle stage of an Entry.
type Status string

const (
	StatusPending Status = "pending" // Request in flight
	StatusSuccess Status = "success" // Heap attached
	StatusError   Status = "error"   // Name and message attached
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Output is what an evaluator returns for one input.
type Output struct {
	Status Status           `json:"status"`
	Heap   heap.Heap        `json:"heap,omitempty"`
	Error  *EvaluationError `json:"error,omitempty"`
}

// Success wraps a heap as a successful output.
func Success(h heap.Heap) Output {
	return Output{Status: StatusSuccess, Heap: h}
}

// Failure wraps a name/message pair as a failed output.
func Failure(name, message string) Output {
	return Output{Status: StatusError, Error: &EvaluationError{Name: name, Message: message}}
}

// Entry pairs one input with its outcome. Entries are values: transitions
// return a new Entry and leave the receiver untouched.
type Entry struct {
	ID        string           `json:"id"`
	Input     string           `json:"input"`
	Status    Status           `json:"status"`
	Heap      heap.Heap        `json:"heap,omitempty"`
	Error     *EvaluationError `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewPending starts an entry whose evaluation is in flight.
func NewPending(id, input string) Entry {
	return Entry{ID: id, Input: input, Status: StatusPending, CreatedAt: time.Now().UTC()}
}

// Succeed attaches a heap.
func (e Entry) Succeed(h heap.Heap) (Entry, error) {
	if e.Status.Terminal() {
		return e, ErrEntryTerminal
	}
	e.Status = StatusSuccess
	e.Heap = h
	return e, nil
}

// Fail attaches an evaluation error.
func (e Entry) Fail(name, message string) (Entry, error) {
	if e.Status.Terminal() {
		return e, ErrEntryTerminal
	}
	e.Status = StatusError
	e.Error = &EvaluationError{Name: name, Message: message}
	return e, nil
}

// Resolve applies an evaluator output.
func (e Entry) Resolve(out Output) (Entry, error) {
	switch out.Status {
	case StatusSuccess:
		return e.Succeed(out.Heap)
	case StatusError:
		if out.Error == nil {
			return e.Fail("Error", "evaluation failed without details")
		}
		return e.Fail(out.Error.Name, out.Error.Message)
	}
	return e, ErrEntryPending
}
