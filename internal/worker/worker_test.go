package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"hawker-order-service/internal/broker"
	"hawker-order-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTicker struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTicker) Tick(context.Context, time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1
}

func (c *countingTicker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestReadyTickerTicksUntilCancelled(t *testing.T) {
	orders := &countingTicker{}
	rt := NewReadyTicker(orders, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- rt.Start(ctx) }()

	assert.Eventually(t, func() bool { return orders.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}

func TestReadyTickerNonPositiveIntervalUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultTickInterval, NewReadyTicker(&countingTicker{}, 0).interval)
	assert.Equal(t, DefaultTickInterval, NewReadyTicker(&countingTicker{}, -time.Second).interval)
	assert.Equal(t, 5*time.Second, NewReadyTicker(&countingTicker{}, 5*time.Second).interval)
}

// replaySource feeds fixed messages to the handler
type replaySource struct {
	messages []kafka.Message
	handled  int
	closed   bool
}

func (r *replaySource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range r.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
		r.handled++
	}
	return nil
}

func (r *replaySource) Close() error {
	r.closed = true
	return nil
}

func encode(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: payload}
}

func TestEventWorkerHandlesLifecycleEvents(t *testing.T) {
	source := &replaySource{messages: []kafka.Message{
		encode(t, &models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{EventID: "1", EventType: models.EventTypeOrderPlaced},
			OrderID:   "order_1",
		}),
		encode(t, &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{EventID: "2", EventType: models.EventTypeOrderReady},
			OrderID:   "order_1",
			From:      models.OrderStatusPreparing,
			To:        models.OrderStatusReady,
		}),
		encode(t, &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{EventID: "3", EventType: models.EventTypeOrderCompleted},
			OrderID:   "order_1",
			From:      models.OrderStatusReady,
			To:        models.OrderStatusCompleted,
		}),
	}}

	w := NewEventWorker(source)
	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, 3, source.handled)

	require.NoError(t, w.Stop())
	assert.True(t, source.closed)
}
