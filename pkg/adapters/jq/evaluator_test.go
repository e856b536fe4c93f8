package jq_test

import (
	"context"
	"testing"

	"github.com/aretw0/flatval/pkg/adapters/jq"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/aretw0/flatval/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, e *jq.Evaluator, sid, code string) domain.Output {
	t.Helper()
	out, err := e.Evaluate(context.Background(), sid, code)
	require.NoError(t, err)
	return out
}

func show(t *testing.T, out domain.Output) string {
	t.Helper()
	require.Equal(t, domain.StatusSuccess, out.Status, "unexpected failure: %v", out.Error)
	s := render.NewState()
	s.Set(render.RootPos, true)
	it, err := render.New().Render(out.Heap, s)
	require.NoError(t, err)
	return render.Text(it)
}

func TestEvaluate_Outputs(t *testing.T) {
	e := jq.New()

	assert.Equal(t, "3", show(t, eval(t, e, "s", "1 + 2")))
	assert.Equal(t, "(3) []\n  0: 2\n  1: 4\n  2: 6\n  length: 3", show(t, eval(t, e, "s", "[1, 2, 3] | map(. * 2)")))
	assert.Equal(t, "{}\n  \"a\" : null", show(t, eval(t, e, "s", `{a: null}`)))

	out := eval(t, e, "s", "empty")
	assert.Equal(t, heap.Undefined{}, out.Heap[heap.Root])

	assert.Equal(t, "(2) []\n  0: 1\n  1: 2\n  length: 2", show(t, eval(t, e, "s", "1, 2")), "several outputs are collected")
}

func TestEvaluate_LastResult(t *testing.T) {
	e := jq.New()

	eval(t, e, "s", "[1, 2, 3]")
	assert.Equal(t, "3", show(t, eval(t, e, "s", "$ans | length")))
	eval(t, e, "s", "empty")
	assert.Equal(t, "3", show(t, eval(t, e, "s", "$ans | length")), "no output keeps the previous result")
	assert.Equal(t, "null", show(t, eval(t, e, "other", "$ans")))

	require.NoError(t, e.Release(context.Background(), "s"))
	assert.Equal(t, "null", show(t, eval(t, e, "s", "$ans")))
}

func TestEvaluate_Failures(t *testing.T) {
	e := jq.New()

	out := eval(t, e, "s", "[1,")
	assert.Equal(t, "SyntaxError", out.Error.Name)

	out = eval(t, e, "s", `error("boom")`)
	assert.Equal(t, domain.StatusError, out.Status)
	assert.Equal(t, "Error", out.Error.Name)

	out = eval(t, e, "s", "$ENV | length")
	assert.Equal(t, "0", show(t, out), "host environment is hidden")
}
