package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"hawker-order-service/internal/models"
	"hawker-order-service/internal/service"
	"hawker-order-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// ReadinessCheck reports whether a dependency is reachable
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	session  *service.Session
	cart     *service.CartStore
	orders   *service.OrderStore
	payments *service.PaymentService
	stalls   *service.StallOrderCounter

	checks map[string]ReadinessCheck
	now    func() time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(
	session *service.Session,
	cart *service.CartStore,
	orders *service.OrderStore,
	payments *service.PaymentService,
	stalls *service.StallOrderCounter,
) *Handler {
	return &Handler{
		session:  session,
		cart:     cart,
		orders:   orders,
		payments: payments,
		stalls:   stalls,
		checks:   make(map[string]ReadinessCheck),
		now:      time.Now,
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/session", h.signIn)
		v1.DELETE("/auth/session", h.signOut)
		v1.GET("/auth/session", h.getSession)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.PUT("/cart/items/:id", h.updateCartItem)
		v1.DELETE("/cart/items/:id", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.checkout)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.DELETE("/orders", h.clearOrders)

		v1.GET("/stalls", h.listStalls)
		v1.GET("/stalls/:name/wait-time", h.getStallWaitTime)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck probes every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) signIn(c *gin.Context) {
	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		badRequest(c, err)
		return
	}

	h.session.SignIn(user)
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}

func (h *Handler) signOut(c *gin.Context) {
	h.session.SignOut()
	c.Status(http.StatusNoContent)
}

func (h *Handler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"authenticated": h.session.IsAuthenticated(),
		"user":          h.session.CurrentUser(),
	})
}

type cartResponse struct {
	Items     []models.CartItem `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"itemCount"`
}

func (h *Handler) cartView() cartResponse {
	return cartResponse{
		Items:     h.cart.Items(),
		Total:     h.cart.Total(),
		ItemCount: h.cart.ItemCount(),
	}
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) addCartItem(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, err)
		return
	}

	h.cart.AddToCart(item)
	c.JSON(http.StatusCreated, h.cartView())
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.cart.UpdateQuantity(c.Param("id"), *req.Quantity)
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) removeCartItem(c *gin.Context) {
	h.cart.RemoveFromCart(c.Param("id"))
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) clearCart(c *gin.Context) {
	h.cart.ClearCart()
	c.Status(http.StatusNoContent)
}

func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.payments.Checkout(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.orderView(order))
}

// orderResponse adds queue information to an order
type orderResponse struct {
	models.Order
	QueuePosition    int `json:"queuePosition"`
	RemainingMinutes int `json:"remainingMinutes"`
}

func (h *Handler) orderView(order *models.Order) orderResponse {
	return orderResponse{
		Order:            *order,
		QueuePosition:    h.orders.GetOrderQueuePosition(order.ID),
		RemainingMinutes: service.RemainingMinutes(order, h.now()),
	}
}

func (h *Handler) listOrders(c *gin.Context) {
	orders := h.orders.Orders()
	views := make([]orderResponse, 0, len(orders))
	for i := range orders {
		views = append(views, h.orderView(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, ok := h.orders.GetOrder(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, h.orderView(order))
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "details": string(req.Status)})
		return
	}

	orderID := c.Param("id")
	if _, ok := h.orders.GetOrder(orderID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if err := h.orders.UpdateOrderStatus(c.Request.Context(), orderID, req.Status); err != nil {
		writeError(c, err)
		return
	}

	order, _ := h.orders.GetOrder(orderID)
	c.JSON(http.StatusOK, h.orderView(order))
}

func (h *Handler) clearOrders(c *gin.Context) {
	h.orders.ClearOrders(c.Request.Context())
	c.Status(http.StatusNoContent)
}

type stallResponse struct {
	models.StallOrderCount
	WaitMinutes int `json:"waitMinutes"`
}

func (h *Handler) listStalls(c *gin.Context) {
	counts := h.stalls.GetAllStallOrderCounts(c.Request.Context())
	views := make([]stallResponse, 0, len(counts))
	for _, count := range counts {
		views = append(views, stallResponse{
			StallOrderCount: count,
			WaitMinutes:     service.CalculateWaitingTime(count.StallName, counts),
		})
	}
	c.JSON(http.StatusOK, gin.H{"stalls": views})
}

func (h *Handler) getStallWaitTime(c *gin.Context) {
	name := c.Param("name")
	c.JSON(http.StatusOK, gin.H{
		"stallName":   name,
		"waitMinutes": h.orders.GetEstimatedWaitingTime(name),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// writeError maps service errors to HTTP statuses
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrUnsupportedPaymentMethod),
		errors.Is(err, service.ErrInvalidCardDetails):
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{
		"error":   http.StatusText(status),
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
