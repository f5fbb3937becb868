package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPreparing, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusCompleted, true},
		{OrderStatusPreparing, OrderStatusCompleted, false},
		{OrderStatusReady, OrderStatusPreparing, false},
		{OrderStatusCompleted, OrderStatusReady, false},
		{OrderStatusPreparing, OrderStatusPreparing, false},
		{OrderStatusPreparing, OrderStatus("cancelled"), false},
	}

	for _, tt := range tests {
		err := ValidateTransition(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestCartItemSubtotal(t *testing.T) {
	item := CartItem{Price: decimal.RequireFromString("5.50"), Quantity: 3}
	assert.True(t, decimal.RequireFromString("16.50").Equal(item.Subtotal()))
}
