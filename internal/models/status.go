package models

import (
	"errors"
	"fmt"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
)

// ErrInvalidTransition is returned for any status change outside preparing -> ready -> completed
var ErrInvalidTransition = errors.New("invalid order status transition")

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether next directly follows s
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPreparing:
		return next == OrderStatusReady
	case OrderStatusReady:
		return next == OrderStatusCompleted
	default:
		return false
	}
}

// ValidateTransition returns ErrInvalidTransition unless from -> to is a forward step
func ValidateTransition(from, to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
