package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/flatval/pkg/adapters/remote"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) *remote.Evaluator {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return remote.New(srv.URL)
}

func evalError(t *testing.T, err error) *domain.EvaluationError {
	t.Helper()
	var evalErr *domain.EvaluationError
	require.True(t, errors.As(err, &evalErr), "expected an EvaluationError, got %v", err)
	return evalErr
}

func TestEvaluate_SendsContextAndCode(t *testing.T) {
	ev := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"contextId": "ctx-1", "code": "[5, 'x']"}, body)

		_, _ = w.Write([]byte(`{"result": {"0": {"type":"array","value":[1,2]}, "1": {"type":"number","value":5}, "2": {"type":"string","value":"x"}}}`))
	})

	out, err := ev.Evaluate(context.Background(), "ctx-1", "[5, 'x']")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, out.Status)
	assert.Equal(t, heap.Array{Items: []heap.ID{1, 2}}, out.Heap[heap.Root])
}

func TestEvaluate_EvaluatorError(t *testing.T) {
	ev := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"name": "ReferenceError", "message": "y is not defined"}}`))
	})

	out, err := ev.Evaluate(context.Background(), "c", "y")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, out.Status)
	assert.Equal(t, "[ReferenceError] y is not defined", out.Error.Error())
}

func TestEvaluate_HTTPError(t *testing.T) {
	ev := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "evaluator crashed", http.StatusBadGateway)
	})

	_, err := ev.Evaluate(context.Background(), "c", "1")
	evalErr := evalError(t, err)
	assert.Equal(t, remote.HTTPError, evalErr.Name)
	assert.Equal(t, "502 Bad Gateway: evaluator crashed", evalErr.Message)
}

func TestEvaluate_SyntaxError(t *testing.T) {
	for name, body := range map[string]string{
		"not json": `<html>`,
		"empty":    `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			ev := serve(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := ev.Evaluate(context.Background(), "c", "1")
			assert.Equal(t, remote.SyntaxError, evalError(t, err).Name)
		})
	}
}

func TestEvaluate_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := remote.New(url).Evaluate(context.Background(), "c", "1")
	assert.Equal(t, remote.NetworkError, evalError(t, err).Name)
}

func TestEvaluate_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	ev := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ev.Evaluate(ctx, "c", "1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEvaluate_BadRecordDegradesOnlyThatNode(t *testing.T) {
	ev := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": {"0": {"type":"array","value":[1]}, "1": {"type":"symbol","value":"?"}}}`))
	})

	out, err := ev.Evaluate(context.Background(), "c", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, out.Status)
	assert.IsType(t, heap.Invalid{}, out.Heap[1])
}
