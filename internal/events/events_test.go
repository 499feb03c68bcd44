package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	id string

	mu     sync.Mutex
	events []Event
	err    error
	panics bool
}

func (h *recordingHandler) Handle(_ context.Context, event Event) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) GetHandlerID() string { return h.id }

func (h *recordingHandler) seen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func testEvent(eventType string) *BaseEvent {
	return &BaseEvent{
		EventID:   "evt-1",
		EventType: eventType,
		Timestamp: time.Now(),
		CompanyID: 1,
	}
}

func TestPublishSync(t *testing.T) {
	bus := NewInMemoryEventBus(nil, zap.NewNop())

	t.Run("delivers to all handlers of the type", func(t *testing.T) {
		first := &recordingHandler{id: "first"}
		second := &recordingHandler{id: "second"}
		require.NoError(t, bus.Subscribe("comment.created", first))
		require.NoError(t, bus.Subscribe("comment.created", second))

		require.NoError(t, bus.Publish(context.Background(), testEvent("comment.created")))
		assert.Equal(t, 1, first.seen())
		assert.Equal(t, 1, second.seen())
	})

	t.Run("handler error does not stop later handlers", func(t *testing.T) {
		failing := &recordingHandler{id: "failing", err: errors.New("boom")}
		after := &recordingHandler{id: "after"}
		require.NoError(t, bus.Subscribe("comment.updated", failing))
		require.NoError(t, bus.Subscribe("comment.updated", after))

		err := bus.Publish(context.Background(), testEvent("comment.updated"))
		assert.Error(t, err)
		assert.Equal(t, 1, after.seen())
	})

	t.Run("panicking handler is recovered", func(t *testing.T) {
		require.NoError(t, bus.Subscribe("comment.deleted", &recordingHandler{id: "panics", panics: true}))

		err := bus.Publish(context.Background(), testEvent("comment.deleted"))
		assert.Error(t, err)
	})

	t.Run("nil event is rejected", func(t *testing.T) {
		assert.Error(t, bus.Publish(context.Background(), nil))
	})
}

func TestPublishAsync(t *testing.T) {
	t.Run("workers deliver queued events", func(t *testing.T) {
		bus := NewInMemoryEventBus(&Config{BufferSize: 8, WorkerCount: 2, HandlerTimeout: time.Second}, zap.NewNop())
		require.NoError(t, bus.Start(context.Background()))
		defer bus.Stop(context.Background())

		handler := &recordingHandler{id: "async"}
		require.NoError(t, bus.Subscribe("user.mentioned", handler))

		require.NoError(t, bus.PublishAsync(context.Background(), testEvent("user.mentioned")))

		assert.Eventually(t, func() bool {
			return handler.seen() == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("full queue errors instead of blocking", func(t *testing.T) {
		// One slot, no workers started, so the second publish finds the
		// queue full.
		bus := NewInMemoryEventBus(&Config{BufferSize: 1, WorkerCount: 1, HandlerTimeout: time.Second}, zap.NewNop())

		require.NoError(t, bus.PublishAsync(context.Background(), testEvent("comment.created")))
		assert.Error(t, bus.PublishAsync(context.Background(), testEvent("comment.created")))
	})
}

func TestUnsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil, zap.NewNop())
	handler := &recordingHandler{id: "sub"}

	require.NoError(t, bus.Subscribe("comment.created", handler))
	require.NoError(t, bus.Unsubscribe("comment.created", handler))

	require.NoError(t, bus.Publish(context.Background(), testEvent("comment.created")))
	assert.Zero(t, handler.seen())

	t.Run("unknown handler is a no-op", func(t *testing.T) {
		assert.NoError(t, bus.Unsubscribe("comment.created", &recordingHandler{id: "never-registered"}))
	})
}

func TestStopHonorsDeadline(t *testing.T) {
	bus := NewInMemoryEventBus(&Config{BufferSize: 4, WorkerCount: 1, HandlerTimeout: time.Second}, zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, bus.Stop(ctx))
}
