package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "namespaces/pkg/platform/audit"
	"namespaces/pkg/platform/audit/store/memory"
	"namespaces/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Namespace: "sol",
		Action:    string(audit.EventNamespaceCreated),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), "sol")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventNamespaceCreated), events[0].Action)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Namespace: "sol",
			Action:    string(audit.EventEntryClaimed),
		})
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListByNamespace(context.Background(), "sol")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
	assert.Equal(t, audit.CategoryOwnership, events[0].Category)
}

func TestPublisher_BufferFull_DoesNotPanic(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Namespace: "sol", Action: string(audit.EventEntryClaimed)})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_Enrichment(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	t.Run("sets timestamp and request id", func(t *testing.T) {
		store.Clear()
		ctx := requestcontext.WithRequestID(context.Background(), "req-1")
		before := time.Now()
		require.NoError(t, pub.Emit(ctx, audit.Event{Namespace: "sol", Action: string(audit.EventNamespaceUpdated)}))
		after := time.Now()

		events, err := pub.List(ctx, "sol")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
		assert.Equal(t, "req-1", events[0].RequestID)
		assert.Equal(t, audit.CategorySecurity, events[0].Category)
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		store.Clear()
		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			Namespace: "sol",
			Action:    string(audit.EventNamespaceUpdated),
			Timestamp: custom,
		}))
		events, err := pub.List(context.Background(), "sol")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})

	t.Run("separates namespaces", func(t *testing.T) {
		store.Clear()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Namespace: "sol", Action: "a"}))
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Namespace: "twitter", Action: "b"}))
		events, err := pub.List(context.Background(), "twitter")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "b", events[0].Action)
	})
}
