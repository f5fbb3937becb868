package service

import (
	"testing"

	"hawker-order-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCalculateWaitingTime(t *testing.T) {
	stalls := []models.StallOrderCount{
		{StallName: "A", TotalOrders: 2, TotalItems: 4},
		{StallName: "Busy", TotalOrders: 3, TotalItems: 8},
		{StallName: "Quiet", TotalOrders: 1, TotalItems: 1},
	}

	assert.Equal(t, 12, CalculateWaitingTime("A", stalls))
	assert.Equal(t, 24, CalculateWaitingTime("Busy", stalls))
	assert.Equal(t, 5, CalculateWaitingTime("Quiet", stalls))
	assert.Equal(t, 5, CalculateWaitingTime("B", stalls))
	assert.Equal(t, 5, CalculateWaitingTime("a", stalls))
}

func TestCalculateWaitingTimeNoStalls(t *testing.T) {
	assert.Equal(t, 5, CalculateWaitingTime("Noodle Stall", nil))
	assert.Equal(t, 5, CalculateWaitingTime("Noodle Stall", []models.StallOrderCount{}))
}
