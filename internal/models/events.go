package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypeOrderReady     = "ORDER_READY"
	EventTypeOrderCompleted = "ORDER_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when an order is created at checkout
type OrderPlacedEvent struct {
	BaseEvent
	OrderID            string          `json:"order_id"`
	UserID             string          `json:"user_id"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	EstimatedReadyTime time.Time       `json:"estimated_ready_time"`
	Items              []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published when an order becomes ready or completed
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	UserID  string          `json:"user_id"`
	From    OrderStatus     `json:"from"`
	To      OrderStatus     `json:"to"`
	Items   []OrderItemData `json:"items"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ItemID    string `json:"item_id"`
	StallName string `json:"stall_name"`
	Quantity  int    `json:"quantity"`
}

// ItemDataFromOrder flattens order items for event payloads
func ItemDataFromOrder(order *Order) []OrderItemData {
	data := make([]OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		data = append(data, OrderItemData{
			ItemID:    item.ID,
			StallName: item.StallName,
			Quantity:  item.Quantity,
		})
	}
	return data
}
