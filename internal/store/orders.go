package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hawker-order-service/internal/models"
)

// OrderRepository persists the session's order list as one JSON blob
type OrderRepository struct {
	store *Store
	key   string
}

// NewOrderRepository creates a repository writing under key
func NewOrderRepository(store *Store, key string) *OrderRepository {
	return &OrderRepository{store: store, key: key}
}

// SaveOrders serializes the full order list
func (r *OrderRepository) SaveOrders(ctx context.Context, orders []models.Order) error {
	if orders == nil {
		orders = []models.Order{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("failed to marshal orders: %w", err)
	}
	return r.store.Put(ctx, r.key, data)
}

// LoadOrders returns the stored order list; a missing key yields an empty list
func (r *OrderRepository) LoadOrders(ctx context.Context) ([]models.Order, error) {
	data, err := r.store.Get(ctx, r.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []models.Order{}, nil
	}
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("failed to unmarshal orders: %w", err)
	}
	return orders, nil
}
