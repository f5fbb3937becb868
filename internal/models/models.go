package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wait-time model constants
const (
	MinWaitMinutes       = 5
	MinutesPerItem       = 3
	ItemEstimatedMinutes = 3
)

// DefaultStallNames lists the stalls of the food court, in display order
var DefaultStallNames = []string{
	"Chicken Rice Stall",
	"Noodle Stall",
	"Drinks Stall",
	"Dessert Stall",
}

// CartItem represents a line item in the shopping cart
type CartItem struct {
	ID        string          `json:"id" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	StallName string          `json:"stallName" binding:"required"`
}

// Subtotal returns price x quantity
func (ci CartItem) Subtotal() decimal.Decimal {
	return ci.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// OrderItem is a snapshot of a cart item inside a placed order
type OrderItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	StallName     string          `json:"stallName"`
	Price         decimal.Decimal `json:"price"`
	Status        OrderStatus     `json:"status"`
	EstimatedTime int             `json:"estimatedTime"`
	StartTime     time.Time       `json:"startTime"`
}

// Order represents a placed order
type Order struct {
	ID                 string          `json:"id"`
	Items              []OrderItem     `json:"items"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	OrderTime          time.Time       `json:"orderTime"`
	Status             OrderStatus     `json:"status"`
	EstimatedReadyTime time.Time       `json:"estimatedReadyTime"`
}

// Clone returns a deep copy of the order
func (o Order) Clone() Order {
	items := make([]OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// StallOrderCount holds the outstanding counts for one stall
type StallOrderCount struct {
	StallName   string    `json:"stallName"`
	TotalOrders int64     `json:"totalOrders"`
	TotalItems  int64     `json:"totalItems"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// User is the identity reported by the external auth provider
type User struct {
	ID    string `json:"id" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}
