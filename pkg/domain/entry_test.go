package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Lifecycle(t *testing.T) {
	pending := domain.NewPending("e1", "1 + 1")
	assert.Equal(t, domain.StatusPending, pending.Status)
	assert.False(t, pending.Status.Terminal())

	h := heap.Heap{0: heap.Number{Value: 2}}
	done, err := pending.Succeed(h)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, done.Status)
	assert.Equal(t, domain.StatusPending, pending.Status, "transitions do not mutate the receiver")

	_, err = done.Fail("TypeError", "late")
	assert.ErrorIs(t, err, domain.ErrEntryTerminal)
	_, err = done.Succeed(h)
	assert.ErrorIs(t, err, domain.ErrEntryTerminal)

	failed, err := pending.Fail("TypeError", "x is not defined")
	require.NoError(t, err)
	assert.Equal(t, "[TypeError] x is not defined", failed.Error.Error())
}

func TestEntry_Resolve(t *testing.T) {
	e := domain.NewPending("e1", "oops")

	got, err := e.Resolve(domain.Failure("SyntaxError", "unexpected token"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, "SyntaxError", got.Error.Name)

	got, err = e.Resolve(domain.Output{Status: domain.StatusError})
	require.NoError(t, err)
	assert.Equal(t, "Error", got.Error.Name)

	_, err = e.Resolve(domain.Output{Status: domain.StatusPending})
	assert.ErrorIs(t, err, domain.ErrEntryPending)
}

func TestHistory_AppendOnlyAndFilter(t *testing.T) {
	h := domain.NewHistory(nil)
	assert.ErrorIs(t, h.Append(domain.NewPending("p", "x")), domain.ErrEntryPending)

	for i, in := range []string{"let a = 1", "a + 1", "[a, a]"} {
		e, err := domain.NewPending(string(rune('a'+i)), in).Succeed(heap.Heap{0: heap.Null{}})
		require.NoError(t, err)
		require.NoError(t, h.Append(e))
	}

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"let a = 1", "a + 1", "[a, a]"}, h.Inputs())
	assert.Len(t, h.Filter(""), 3)

	filtered := h.Filter("+ 1")
	require.Len(t, filtered, 1)
	assert.Equal(t, "b", filtered[0].ID)
	assert.Empty(t, h.Filter("zzz"))

	got, ok := h.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "[a, a]", got.Input)

	entries := h.Entries()
	entries[0].Input = "mutated"
	assert.Equal(t, "let a = 1", h.Inputs()[0], "Entries returns a copy")
}

func TestNavigator(t *testing.T) {
	inputs := []string{"first", "second", "third"}
	n := domain.NewNavigator()

	assert.Equal(t, "", n.Next(inputs))
	assert.Equal(t, "third", n.Previous(inputs))
	assert.Equal(t, "second", n.Previous(inputs))
	assert.Equal(t, "first", n.Previous(inputs))
	assert.Equal(t, "first", n.Previous(inputs), "stops at the oldest")
	assert.Equal(t, "second", n.Next(inputs))
	assert.Equal(t, "third", n.Next(inputs))
	assert.Equal(t, "", n.Next(inputs))

	n.Previous(inputs)
	n.Reset()
	assert.Equal(t, "third", n.Previous(inputs))
	assert.Equal(t, "", domain.NewNavigator().Previous(nil))
}

func TestAsEvaluationError(t *testing.T) {
	evalErr := &domain.EvaluationError{Name: "RangeError", Message: "too big"}
	wrapped := errors.Join(errors.New("context"), evalErr)
	assert.Same(t, evalErr, domain.AsEvaluationError(wrapped))

	plain := domain.AsEvaluationError(errors.New("boom"))
	assert.Equal(t, "Error", plain.Name)
	assert.Equal(t, "boom", plain.Message)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnClear: func(context.Context, *domain.ClearEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnClear: func(context.Context, *domain.ClearEvent) { calls = append(calls, "b") }}

	merged := a.Merge(b)
	merged.OnClear(context.Background(), &domain.ClearEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, merged.OnEntryDone)
}
