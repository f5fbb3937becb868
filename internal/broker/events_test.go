package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hawker-order-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEvent struct {
	key     string
	payload []byte
}

type captureSink struct {
	events []capturedEvent
}

func (s *captureSink) PublishEvent(_ context.Context, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.events = append(s.events, capturedEvent{key: key, payload: payload})
	return nil
}

func placedEvent() *models.OrderPlacedEvent {
	return &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
		},
		OrderID:     "order_1",
		UserID:      "u1",
		TotalAmount: decimal.RequireFromString("9.00"),
		Items:       []models.OrderItemData{{ItemID: "a", StallName: "Noodle Stall", Quantity: 2}},
	}
}

func TestPublisherKeysByOrderID(t *testing.T) {
	sink := &captureSink{}
	publisher := NewEventPublisher(sink)
	ctx := context.Background()

	require.NoError(t, publisher.PublishOrderPlaced(ctx, placedEvent()))
	require.NoError(t, publisher.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderReady},
		OrderID:   "order_1",
		From:      models.OrderStatusPreparing,
		To:        models.OrderStatusReady,
	}))

	require.Len(t, sink.events, 2)
	assert.Equal(t, "order_1", sink.events[0].key)
	assert.Equal(t, "order_1", sink.events[1].key)
}

func TestHandleMessageRoutesByType(t *testing.T) {
	sink := &captureSink{}
	publisher := NewEventPublisher(sink)
	ctx := context.Background()

	require.NoError(t, publisher.PublishOrderPlaced(ctx, placedEvent()))
	require.NoError(t, publisher.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCompleted},
		OrderID:   "order_1",
		From:      models.OrderStatusReady,
		To:        models.OrderStatusCompleted,
	}))

	var placed *models.OrderPlacedEvent
	var changed *models.OrderStatusChangedEvent
	handler := NewEventHandler()
	handler.OnOrderPlaced(func(_ context.Context, e *models.OrderPlacedEvent) error {
		placed = e
		return nil
	})
	handler.OnOrderStatusChanged(func(_ context.Context, e *models.OrderStatusChangedEvent) error {
		changed = e
		return nil
	})

	for _, ev := range sink.events {
		require.NoError(t, handler.HandleMessage(ctx, kafka.Message{Key: []byte(ev.key), Value: ev.payload}))
	}

	require.NotNil(t, placed)
	assert.Equal(t, "order_1", placed.OrderID)
	assert.True(t, decimal.RequireFromString("9").Equal(placed.TotalAmount))
	require.Len(t, placed.Items, 1)
	assert.Equal(t, "Noodle Stall", placed.Items[0].StallName)

	require.NotNil(t, changed)
	assert.Equal(t, models.OrderStatusCompleted, changed.To)
}

func TestHandleMessageIgnoresUnknownType(t *testing.T) {
	handler := NewEventHandler()
	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)})
	assert.NoError(t, err)
}

func TestHandleMessageRejectsMalformedPayload(t *testing.T) {
	handler := NewEventHandler()
	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
}
