package worker

import (
	"context"
	"time"

	"hawker-order-service/internal/broker"
	"hawker-order-service/internal/models"
	"hawker-order-service/internal/util"

	"go.uber.org/zap"
)

// MessageSource is a Kafka consumer; *broker.Consumer implements it
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// EventWorker consumes order lifecycle events for metrics and pickup notices
type EventWorker struct {
	consumer     MessageSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewEventWorker creates a new event worker
func NewEventWorker(consumer MessageSource) *EventWorker {
	w := &EventWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)

	return w
}

// Start blocks consuming events until ctx ends
func (w *EventWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order event worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the consumer
func (w *EventWorker) Stop() error {
	w.logger.Info("Stopping order event worker")
	return w.consumer.Close()
}

func (w *EventWorker) handleOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	util.OrderEventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	w.logger.Info("Order placed",
		zap.String("order_id", event.OrderID),
		zap.String("user_id", event.UserID),
		zap.Int("items", len(event.Items)),
		zap.Time("estimated_ready", event.EstimatedReadyTime))
	return nil
}

func (w *EventWorker) handleOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	util.OrderEventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	if event.To == models.OrderStatusReady {
		w.logger.Info("Order ready for pickup",
			zap.String("order_id", event.OrderID),
			zap.String("user_id", event.UserID))
		return nil
	}
	w.logger.Info("Order status changed",
		zap.String("order_id", event.OrderID),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)))
	return nil
}

// Ticker advances orders whose estimated ready time has passed
type Ticker interface {
	Tick(ctx context.Context, now time.Time) int
}

// ReadyTicker calls Tick on a fixed interval
type ReadyTicker struct {
	orders   Ticker
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// DefaultTickInterval is used when NewReadyTicker is given a non-positive interval
const DefaultTickInterval = time.Minute

// NewReadyTicker creates a ticker worker
func NewReadyTicker(orders Ticker, interval time.Duration) *ReadyTicker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &ReadyTicker{
		orders:   orders,
		interval: interval,
		now:      time.Now,
		logger:   util.GetLogger(),
	}
}

// Start blocks until ctx ends
func (rt *ReadyTicker) Start(ctx context.Context) error {
	rt.logger.Info("Starting ready ticker", zap.Duration("interval", rt.interval))

	ticker := time.NewTicker(rt.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rt.logger.Info("Stopping ready ticker")
			return ctx.Err()
		case <-ticker.C:
			if moved := rt.orders.Tick(ctx, rt.now()); moved > 0 {
				rt.logger.Info("Orders marked ready", zap.Int("count", moved))
			}
		}
	}
}
