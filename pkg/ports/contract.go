package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHistoryStoreContract runs a suite of tests to verify that a HistoryStore
// implementation adheres to the defined interface contract.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	finished := func(t *testing.T, id, input string) domain.Entry {
		b := heap.NewBuilder()
		root := b.Reserve()
		b.Set(root, heap.Array{Items: []heap.ID{b.Number(1), b.String(input)}})
		e, err := domain.NewPending(id, input).Succeed(b.Heap())
		require.NoError(t, err)
		return e
	}

	t.Run("Create Empty", func(t *testing.T) {
		id := sessionID + "-empty"
		require.NoError(t, store.Create(ctx, id))
		require.NoError(t, store.Create(ctx, id), "Create must be idempotent")
		defer func() { _ = store.Clear(ctx, id) }()

		entries, err := store.List(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Append and List", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, sessionID))

		first := finished(t, "e1", "[1, 'a']")
		failed, err := domain.NewPending("e2", "x").Fail("ReferenceError", "x is not defined")
		require.NoError(t, err)

		require.NoError(t, store.Append(ctx, sessionID, first))
		require.NoError(t, store.Append(ctx, sessionID, failed))

		entries, err := store.List(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "e1", entries[0].ID)
		assert.Equal(t, domain.StatusSuccess, entries[0].Status)
		assert.Equal(t, first.Heap, entries[0].Heap, "heap must survive the store unchanged")

		assert.Equal(t, "e2", entries[1].ID)
		assert.Equal(t, domain.StatusError, entries[1].Status)
		require.NotNil(t, entries[1].Error)
		assert.Equal(t, "ReferenceError", entries[1].Error.Name)
	})

	t.Run("Append Pending", func(t *testing.T) {
		err := store.Append(ctx, sessionID, domain.NewPending("p", "1"))
		assert.ErrorIs(t, err, domain.ErrEntryPending)
	})

	t.Run("List Non-Existent", func(t *testing.T) {
		_, err := store.List(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, sessionID, finished(t, "e3", "3")))

		require.NoError(t, store.Clear(ctx, sessionID), "Clear should not return error")

		_, err := store.List(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "List after Clear should return ErrSessionNotFound")
	})

	t.Run("Sessions", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Create(ctx, id1))
		require.NoError(t, store.Append(ctx, id2, finished(t, "e1", "1")))

		defer func() {
			_ = store.Clear(ctx, id1)
			_ = store.Clear(ctx, id2)
		}()

		sessions, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
