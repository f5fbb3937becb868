package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"to"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order operations",
	}, []string{"reason"})

	OrdersAutoReadyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_auto_ready_total",
		Help: "Total number of orders moved to ready by the ticker",
	})

	StallCountUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stall_count_updates_total",
		Help: "Total number of stall count updates",
	}, []string{"op"})

	StallStoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stall_store_errors_total",
		Help: "Total number of remote stall store errors",
	}, []string{"op"})

	StallStoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stall_store_latency_seconds",
		Help:    "Latency of remote stall store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	StallFeedSnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stall_feed_snapshots_total",
		Help: "Total number of stall feed snapshots delivered",
	})

	CartOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Total number of cart operations",
	}, []string{"op"})

	CheckoutAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Total number of checkout attempts",
	})

	CheckoutSuccessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_success_total",
		Help: "Total number of successful checkouts",
	}, []string{"method"})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	OrderEventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_events_consumed_total",
		Help: "Total number of order events consumed",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
