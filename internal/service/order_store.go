package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"hawker-order-service/internal/models"
	"hawker-order-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrEmptyOrder is returned when an order is created without items
var ErrEmptyOrder = errors.New("order must contain at least one item")

// StallCounter is the subset of StallOrderCounter used by OrderStore
type StallCounter interface {
	AddOrderToStall(ctx context.Context, stallName string, itemCount int) error
	RemoveOrderFromStall(ctx context.Context, stallName string, itemCount int) error
	SubscribeToStallOrders(ctx context.Context, callback func([]models.StallOrderCount)) func()
}

// OrderRepository persists the order list
type OrderRepository interface {
	SaveOrders(ctx context.Context, orders []models.Order) error
	LoadOrders(ctx context.Context) ([]models.Order, error)
}

// OrderEventPublisher publishes order lifecycle events
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// OrderStore holds the session's placed orders, most recent first
type OrderStore struct {
	mu          sync.Mutex
	orders      []models.Order
	stallOrders []models.StallOrderCount

	// persistMu serializes saves so the last write is the newest snapshot
	persistMu sync.Mutex

	feedMu          sync.Mutex
	feedGen         uint64
	unsubscribeFeed func()
	unsubscribeAuth func()

	counter   StallCounter
	repo      OrderRepository
	publisher OrderEventPublisher
	session   *Session
	logger    *zap.Logger

	now   func() time.Time
	newID func(time.Time) string
}

// NewOrderStore creates an order store; publisher may be nil
func NewOrderStore(
	counter StallCounter,
	repo OrderRepository,
	publisher OrderEventPublisher,
	session *Session,
) *OrderStore {
	return &OrderStore{
		orders:      []models.Order{},
		stallOrders: []models.StallOrderCount{},
		counter:     counter,
		repo:        repo,
		publisher:   publisher,
		session:     session,
		logger:      util.GetLogger(),
		now:         time.Now,
		newID:       newOrderID,
	}
}

func newOrderID(time.Time) string {
	return "order_" + uuid.Must(uuid.NewV7()).String()
}

// Start follows the session: the stall feed is open while a user is signed in
// and the cached stall counts are dropped on sign-out.
func (s *OrderStore) Start(ctx context.Context) {
	unsubscribe := s.session.OnAuthStateChanged(func(user *models.User) {
		if user != nil {
			s.openFeed(ctx)
			return
		}
		s.closeFeed()
		s.mu.Lock()
		s.stallOrders = []models.StallOrderCount{}
		s.mu.Unlock()
	})

	s.feedMu.Lock()
	s.unsubscribeAuth = unsubscribe
	s.feedMu.Unlock()
}

// Close stops following the session and releases the stall feed
func (s *OrderStore) Close() {
	s.feedMu.Lock()
	unsubscribeAuth := s.unsubscribeAuth
	s.unsubscribeAuth = nil
	s.feedMu.Unlock()

	if unsubscribeAuth != nil {
		unsubscribeAuth()
	}
	s.closeFeed()
}

func (s *OrderStore) openFeed(ctx context.Context) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	if s.unsubscribeFeed != nil {
		return
	}
	s.feedGen++
	gen := s.feedGen

	s.unsubscribeFeed = s.counter.SubscribeToStallOrders(ctx, func(stalls []models.StallOrderCount) {
		s.feedMu.Lock()
		defer s.feedMu.Unlock()
		if s.feedGen != gen {
			return
		}

		s.mu.Lock()
		s.stallOrders = stalls
		s.mu.Unlock()
	})
}

func (s *OrderStore) closeFeed() {
	s.feedMu.Lock()
	unsubscribe := s.unsubscribeFeed
	s.unsubscribeFeed = nil
	s.feedGen++
	s.feedMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// LoadOrders restores the persisted order list; failures leave the list empty
func (s *OrderStore) LoadOrders(ctx context.Context) {
	orders, err := s.repo.LoadOrders(ctx)
	if err != nil {
		s.logger.Error("Failed to load orders from storage", zap.Error(err))
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	s.mu.Lock()
	s.orders = orders
	s.mu.Unlock()

	s.logger.Info("Orders loaded from storage", zap.Int("count", len(orders)))
}

// CreateOrder places an order for cartItems, most recent first, and adds
// each item to its stall's outstanding counts.
func (s *OrderStore) CreateOrder(ctx context.Context, cartItems []models.CartItem, totalAmount decimal.Decimal) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderStore.CreateOrder")
	defer span.End()

	user := s.session.CurrentUser()
	if user == nil {
		util.OrdersFailedTotal.WithLabelValues("not_authenticated").Inc()
		return nil, fmt.Errorf("create order: %w", ErrNotAuthenticated)
	}
	if len(cartItems) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty").Inc()
		return nil, ErrEmptyOrder
	}

	orderTime := s.now()
	items := make([]models.OrderItem, 0, len(cartItems))
	for _, ci := range cartItems {
		items = append(items, models.OrderItem{
			ID:            ci.ID,
			Name:          ci.Name,
			Quantity:      ci.Quantity,
			StallName:     ci.StallName,
			Price:         ci.Price,
			Status:        models.OrderStatusPreparing,
			EstimatedTime: models.ItemEstimatedMinutes,
			StartTime:     orderTime,
		})
	}

	order := models.Order{
		ID:                 s.newID(orderTime),
		Items:              items,
		TotalAmount:        totalAmount,
		OrderTime:          orderTime,
		Status:             models.OrderStatusPreparing,
		EstimatedReadyTime: orderTime.Add(time.Duration(estimatedOrderMinutes(items)) * time.Minute),
	}

	s.mu.Lock()
	s.orders = append([]models.Order{order}, s.orders...)
	s.mu.Unlock()

	s.persist(ctx)
	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int("items", len(items)),
		zap.Time("estimated_ready", order.EstimatedReadyTime))

	s.publishPlaced(ctx, user, &order)

	for _, item := range order.Items {
		if err := s.counter.AddOrderToStall(ctx, item.StallName, item.Quantity); err != nil {
			util.OrdersFailedTotal.WithLabelValues("stall_increment").Inc()
			return nil, fmt.Errorf("failed to add order %s to stall %q: %w", order.ID, item.StallName, err)
		}
	}

	created := order.Clone()
	return &created, nil
}

// estimatedOrderMinutes is max(5, sum of quantity x 3)
func estimatedOrderMinutes(items []models.OrderItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity * models.MinutesPerItem
	}
	if total < models.MinWaitMinutes {
		return models.MinWaitMinutes
	}
	return total
}

// UpdateOrderStatus moves an order one step forward. Unknown IDs are ignored.
// Completing an order removes each of its items from the stall counts.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	ctx, span := util.StartSpan(ctx, "OrderStore.UpdateOrderStatus")
	defer span.End()

	user := s.session.CurrentUser()
	if user == nil {
		util.OrdersFailedTotal.WithLabelValues("not_authenticated").Inc()
		return fmt.Errorf("update order: %w", ErrNotAuthenticated)
	}

	s.mu.Lock()
	idx := s.indexLocked(orderID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	from := s.orders[idx].Status
	if err := models.ValidateTransition(from, status); err != nil {
		s.mu.Unlock()
		util.OrdersFailedTotal.WithLabelValues("invalid_transition").Inc()
		return err
	}
	s.orders[idx].Status = status
	for i := range s.orders[idx].Items {
		s.orders[idx].Items[i].Status = status
	}
	updated := s.orders[idx].Clone()
	s.mu.Unlock()

	s.persist(ctx)
	util.OrderStatusTransitionsTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(status)))

	s.publishStatusChanged(ctx, user, &updated, from)

	if status != models.OrderStatusCompleted {
		return nil
	}
	for _, item := range updated.Items {
		if err := s.counter.RemoveOrderFromStall(ctx, item.StallName, item.Quantity); err != nil {
			util.OrdersFailedTotal.WithLabelValues("stall_decrement").Inc()
			return fmt.Errorf("failed to remove order %s from stall %q: %w", orderID, item.StallName, err)
		}
	}
	return nil
}

// Tick moves every preparing order whose estimate has elapsed to ready and
// returns how many moved.
func (s *OrderStore) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var due []string
	for _, order := range s.orders {
		if order.Status == models.OrderStatusPreparing && !now.Before(order.EstimatedReadyTime) {
			due = append(due, order.ID)
		}
	}
	s.mu.Unlock()

	moved := 0
	for _, id := range due {
		err := s.UpdateOrderStatus(ctx, id, models.OrderStatusReady)
		if errors.Is(err, ErrNotAuthenticated) {
			break
		}
		if err != nil {
			s.logger.Warn("Failed to mark order ready", zap.String("order_id", id), zap.Error(err))
			continue
		}
		moved++
	}

	if moved > 0 {
		util.OrdersAutoReadyTotal.Add(float64(moved))
	}
	return moved
}

// ClearOrders forgets the local order history. Remote stall counts are left as they are.
func (s *OrderStore) ClearOrders(ctx context.Context) {
	s.mu.Lock()
	s.orders = []models.Order{}
	s.mu.Unlock()

	s.persist(ctx)
	s.logger.Info("Orders cleared")
}

// GetEstimatedWaitingTime estimates the wait for stallName from the cached stall feed
func (s *OrderStore) GetEstimatedWaitingTime(stallName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return CalculateWaitingTime(stallName, s.stallOrders)
}

// GetOrderQueuePosition is the 1-based rank of orderID among preparing
// orders in list order, or 0 if it is not preparing.
func (s *OrderStore) GetOrderQueuePosition(orderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	position := 0
	for _, order := range s.orders {
		if order.Status != models.OrderStatusPreparing {
			continue
		}
		position++
		if order.ID == orderID {
			return position
		}
	}
	return 0
}

// Orders returns a copy of the order list
func (s *OrderStore) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// GetOrder returns a copy of one order
func (s *OrderStore) GetOrder(orderID string) (*models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(orderID)
	if idx < 0 {
		return nil, false
	}
	order := s.orders[idx].Clone()
	return &order, true
}

// StallOrders returns the cached stall feed snapshot
func (s *OrderStore) StallOrders() []models.StallOrderCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.StallOrderCount, len(s.stallOrders))
	copy(out, s.stallOrders)
	return out
}

// RemainingMinutes rounds the time left until the order's estimate up to whole minutes
func RemainingMinutes(order *models.Order, now time.Time) int {
	remaining := order.EstimatedReadyTime.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

func (s *OrderStore) indexLocked(orderID string) int {
	for i := range s.orders {
		if s.orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

func (s *OrderStore) snapshotLocked() []models.Order {
	out := make([]models.Order, len(s.orders))
	for i, order := range s.orders {
		out[i] = order.Clone()
	}
	return out
}

// persist saves the current list; failures are logged only
func (s *OrderStore) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	orders := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.repo.SaveOrders(ctx, orders); err != nil {
		s.logger.Error("Failed to save orders to storage", zap.Error(err))
	}
}

func (s *OrderStore) publishPlaced(ctx context.Context, user *models.User, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: s.now(),
		},
		OrderID:            order.ID,
		UserID:             user.ID,
		TotalAmount:        order.TotalAmount,
		EstimatedReadyTime: order.EstimatedReadyTime,
		Items:              models.ItemDataFromOrder(order),
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *OrderStore) publishStatusChanged(ctx context.Context, user *models.User, order *models.Order, from models.OrderStatus) {
	if s.publisher == nil {
		return
	}
	eventType := models.EventTypeOrderReady
	if order.Status == models.OrderStatusCompleted {
		eventType = models.EventTypeOrderCompleted
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: s.now(),
		},
		OrderID: order.ID,
		UserID:  user.ID,
		From:    from,
		To:      order.Status,
		Items:   models.ItemDataFromOrder(order),
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.String("order_id", order.ID), zap.Error(err))
	}
}
