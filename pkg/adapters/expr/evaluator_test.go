package expr_test

import (
	"context"
	"testing"

	"github.com/aretw0/flatval/pkg/adapters/expr"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, e *expr.Evaluator, sid, code string) domain.Output {
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

func TestEvaluate_Values(t *testing.T) {
	e := expr.New()

	assert.Equal(t, "3", show(t, eval(t, e, "s", "1 + 2")))
	assert.Equal(t, `"ab"`, show(t, eval(t, e, "s", `"a" + "b"`)))
	assert.Equal(t, "(2) []\n  0: 1\n  1: \"x\"\n  length: 2", show(t, eval(t, e, "s", `[1, "x"]`)))
	assert.Equal(t, "{}\n  \"a\" : true", show(t, eval(t, e, "s", `{"a": true}`)))
	assert.Equal(t, "null", show(t, eval(t, e, "s", "missing")))
}

func TestEvaluate_AssignmentAndLastResult(t *testing.T) {
	e := expr.New()

	assert.Equal(t, "2", show(t, eval(t, e, "s", "x = 2")))
	assert.Equal(t, "6", show(t, eval(t, e, "s", "x * 3")))
	assert.Equal(t, "7", show(t, eval(t, e, "s", "ans + 1")))
	assert.Equal(t, "true", show(t, eval(t, e, "s", "x == 2")), "comparison is not an assignment")

	assert.Equal(t, "null", show(t, eval(t, e, "other", "x")), "sessions do not share variables")

	require.NoError(t, e.Release(context.Background(), "s"))
	assert.Equal(t, "null", show(t, eval(t, e, "s", "x")))
}

func TestEvaluate_Failures(t *testing.T) {
	e := expr.New()

	out := eval(t, e, "s", "1 +")
	assert.Equal(t, domain.StatusError, out.Status)
	assert.Equal(t, "SyntaxError", out.Error.Name)

	eval(t, e, "s", `word = "abc"`)
	out = eval(t, e, "s", "int(word)")
	assert.Equal(t, domain.StatusError, out.Status)
	assert.Equal(t, "Error", out.Error.Name)
}

func TestEvaluate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := expr.New().Evaluate(ctx, "s", "1")
	assert.ErrorIs(t, err, context.Canceled)
}
