package service

import (
	"sync"

	"hawker-order-service/internal/models"
	"hawker-order-service/internal/util"

	"github.com/shopspring/decimal"
)

// CartStore holds the shopping cart line items
type CartStore struct {
	mu    sync.Mutex
	items []models.CartItem
}

// NewCartStore creates an empty cart
func NewCartStore() *CartStore {
	return &CartStore{}
}

// AddToCart adds one unit of item, merging with an existing line of the same ID.
// The incoming quantity is ignored.
func (c *CartStore) AddToCart(item models.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	util.CartOperationsTotal.WithLabelValues("add").Inc()

	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity++
			return
		}
	}

	item.Quantity = 1
	c.items = append(c.items, item)
}

// RemoveFromCart drops every line with itemID
func (c *CartStore) RemoveFromCart(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	util.CartOperationsTotal.WithLabelValues("remove").Inc()
	c.removeLocked(itemID)
}

func (c *CartStore) removeLocked(itemID string) {
	kept := c.items[:0]
	for _, item := range c.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

// UpdateQuantity sets the quantity of itemID; a quantity of zero or less removes it
func (c *CartStore) UpdateQuantity(itemID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	util.CartOperationsTotal.WithLabelValues("update").Inc()

	if quantity <= 0 {
		c.removeLocked(itemID)
		return
	}
	for i := range c.items {
		if c.items[i].ID == itemID {
			c.items[i].Quantity = quantity
		}
	}
}

// ClearCart empties the cart
func (c *CartStore) ClearCart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	util.CartOperationsTotal.WithLabelValues("clear").Inc()
	c.items = nil
}

// Items returns a copy of the line items in insertion order
func (c *CartStore) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]models.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Total is the sum of price x quantity over all lines
func (c *CartStore) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount is the number of units in the cart
func (c *CartStore) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}
