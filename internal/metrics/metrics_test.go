package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/flatval/internal/metrics"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks(t *testing.T) {
	m := metrics.New()
	hooks := m.Hooks()
	ctx := context.Background()

	ok, err := domain.NewPending("a", "1").Succeed(heap.Heap{0: heap.Null{}})
	require.NoError(t, err)
	failed, err := domain.NewPending("b", "x").Fail("ReferenceError", "x")
	require.NoError(t, err)

	hooks.OnEntryDone(ctx, &domain.EntryEvent{Entry: ok, Duration: 10 * time.Millisecond})
	hooks.OnEntryDone(ctx, &domain.EntryEvent{Entry: failed})
	hooks.OnRenderFault(ctx, &domain.FaultEvent{EntryID: "a"})
	hooks.OnClear(ctx, &domain.ClearEvent{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("error", "ReferenceError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderFaults))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryClears))
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.RenderFaults.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "flatval_render_faults_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
