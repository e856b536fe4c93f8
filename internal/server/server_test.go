package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/flatval"
	"github.com/aretw0/flatval/internal/metrics"
	"github.com/aretw0/flatval/internal/server"
	"github.com/aretw0/flatval/pkg/adapters/memory"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, opts ...server.Option) http.Handler {
	t.Helper()
	h, err := heap.Parse([]byte(`{"0": {"type":"array", "value":[1,2]}, "1": {"type":"number", "value":5}, "2": {"type":"string", "value":"x"}}`))
	require.NoError(t, err)

	ev := memory.NewEvaluator().Respond("arr", domain.Success(h))
	m := metrics.New()
	c := flatval.New(ev, flatval.WithLifecycleHooks(m.Hooks()))
	return server.NewHandler(c, append([]server.Option{server.WithMetrics(m)}, opts...)...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, "POST", "/api/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp server.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func decodeEntry(t *testing.T, w *httptest.ResponseRecorder) server.EntryResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var e server.EntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestHealthAndInfo(t *testing.T) {
	h := newHandler(t)

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"app":"flatval-http"`)

	w = do(t, h, "GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<!DOCTYPE html>")
}

func TestPage_RecallAndClear(t *testing.T) {
	w := do(t, newHandler(t), "GET", "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	page := w.Body.String()
	assert.Contains(t, page, `ev.key === "ArrowUp"`)
	assert.Contains(t, page, `ev.key === "ArrowDown"`)
	assert.Contains(t, page, `filter.value = "";`, "clearing also resets the filter")
}

func TestEvalToggleAndList(t *testing.T) {
	h := newHandler(t)
	sid := createSession(t, h)

	e := decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"arr"}`))
	assert.Equal(t, "success", e.Status)
	assert.Equal(t, "(2) []", e.Text)
	assert.Contains(t, e.HTML, `data-pos="$"`)

	e = decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/entries/"+e.ID+"/toggle", `{"pos":"$"}`))
	assert.Equal(t, "(2) []\n  0: 5\n  1: \"x\"\n  length: 2", e.Text)

	failed := decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"nope"}`))
	assert.True(t, failed.IsError)
	assert.Equal(t, "[ReferenceError] nope is not defined", failed.Text)

	w := do(t, h, "GET", "/api/sessions/"+sid+"/entries?filter=ar", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []server.EntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].ID)
	assert.Contains(t, list[0].Text, "length: 2", "display state survives listing")
}

func TestExpand(t *testing.T) {
	h := newHandler(t)
	sid := createSession(t, h)
	e := decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"arr"}`))

	e = decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/entries/"+e.ID+"/expand", ""))
	assert.Contains(t, e.Text, "length: 2")

	w := do(t, h, "POST", "/api/sessions/"+sid+"/entries/"+e.ID+"/expand?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// dagHeap builds a chain of arrays, each holding its successor twice, so the
// number of occurrences doubles with every level.
func dagHeap(t *testing.T, levels int) heap.Heap {
	t.Helper()
	h := heap.Heap{}
	for i := 0; i < levels; i++ {
		next := heap.ID(i + 1)
		h[heap.ID(i)] = heap.Array{Items: []heap.ID{next, next}}
	}
	h[heap.ID(levels)] = heap.Number{Value: 1}
	return h
}

func TestExpand_LimitIsCapped(t *testing.T) {
	ev := memory.NewEvaluator().Respond("dag", domain.Success(dagHeap(t, 18)))
	h := server.NewHandler(flatval.New(ev), server.WithExpandLimit(10))
	sid := createSession(t, h)
	e := decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"dag"}`))

	for _, limit := range []string{"0", "1000000", ""} {
		t.Run("limit="+limit, func(t *testing.T) {
			path := "/api/sessions/" + sid + "/entries/" + e.ID + "/expand"
			if limit != "" {
				path += "?limit=" + limit
			}
			got := decodeEntry(t, do(t, h, "POST", path, ""))
			assert.Equal(t, 10, strings.Count(got.Text, "length: 2"), "no more than the server's limit is opened")
		})
	}

	other := decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"dag"}`))
	got := decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/entries/"+other.ID+"/expand?limit=1", ""))
	assert.Equal(t, 1, strings.Count(got.Text, "length: 2"), "smaller limits are honoured")
}

func TestErrorMapping(t *testing.T) {
	h := newHandler(t)
	sid := createSession(t, h)
	e := decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"arr"}`))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"Unknown Session", "POST", "/api/sessions/missing/eval", `{"code":"arr"}`, http.StatusNotFound},
		{"Empty Input", "POST", "/api/sessions/" + sid + "/eval", `{"code":"  "}`, http.StatusBadRequest},
		{"Bad Body", "POST", "/api/sessions/" + sid + "/eval", `{`, http.StatusBadRequest},
		{"Unknown Entry", "POST", "/api/sessions/" + sid + "/entries/missing/toggle", `{"pos":"$"}`, http.StatusNotFound},
		{"Bad Position", "POST", "/api/sessions/" + sid + "/entries/" + e.ID + "/toggle", `{"pos":"$/x"}`, http.StatusBadRequest},
		{"List Unknown", "GET", "/api/sessions/missing/entries", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestClearSession(t *testing.T) {
	h := newHandler(t)
	sid := createSession(t, h)
	decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"arr"}`))

	w := do(t, h, "DELETE", "/api/sessions/"+sid, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp server.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, sid, resp.SessionID)

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/sessions/"+sid+"/entries", "").Code)

	w = do(t, h, "GET", "/api/sessions/"+resp.SessionID+"/entries", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSubscribeEvents(t *testing.T) {
	h := newHandler(t)
	sid := createSession(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/api/sessions/"+sid+"/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(wSub, reqSub)
	}()

	require.Eventually(t, func() bool {
		return gaugeValue(t, h) == "1"
	}, time.Second, 10*time.Millisecond)

	decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"arr"}`))
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"type":"entry"`)
	assert.Contains(t, output, `"text":"(2) []"`)
	assert.Equal(t, "0", gaugeValue(t, h))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHandler(t)
	sid := createSession(t, h)
	decodeEntry(t, do(t, h, "POST", "/api/sessions/"+sid+"/eval", `{"code":"arr"}`))

	w := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `flatval_evaluations_total{error_name="",status="success"} 1`)
}

func gaugeValue(t *testing.T, h http.Handler) string {
	t.Helper()
	for _, line := range strings.Split(do(t, h, "GET", "/metrics", "").Body.String(), "\n") {
		if v, ok := strings.CutPrefix(line, "flatval_active_streams "); ok {
			return v
		}
	}
	return ""
}
