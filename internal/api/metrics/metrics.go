// Package metrics defines the custom Prometheus metrics of the marketplace
// API. It is the single source of truth for metric names, labels and help
// strings. Metrics register with the default registry on package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ocandle"

// ── Order metrics ─────────────────────────────────────────────────────────────

// OrdersCreatedTotal counts placed orders.
// Label:
//   - delivery_type: "pickup" or "delivery"
var OrdersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Total number of orders placed, by delivery type.",
	},
	[]string{"delivery_type"},
)

// OrderStatusChangesTotal counts successful status changes.
// Label:
//   - status: the status the order moved to
var OrderStatusChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_changes_total",
		Help:      "Total number of order status changes, by new status.",
	},
	[]string{"status"},
)

// PaymentsTotal counts payment attempts.
// Labels:
//   - method: upi, card, wallet, cod or netbanking
//   - result: "completed", "already_paid" or "error"
var PaymentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Total number of payment attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// ── Catalog metrics ───────────────────────────────────────────────────────────

// ListingOperationsTotal counts listing writes.
// Label:
//   - op: "create", "update", "delete", "stock" or "review"
var ListingOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listing_operations_total",
		Help:      "Total number of successful listing writes, by operation.",
	},
	[]string{"op"},
)

// ImagesReceivedTotal counts image files accepted from clients.
// Label:
//   - kind: "product" or "profile"
var ImagesReceivedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "images_received_total",
		Help:      "Total number of image files received, by kind.",
	},
	[]string{"kind"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthFailuresTotal counts rejected authentication attempts.
// Label:
//   - reason: "missing_token", "invalid_token", "deactivated", "credentials", ...
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of rejected authentication attempts, by reason.",
	},
	[]string{"reason"},
)

// RateLimitRejectionsTotal counts requests refused by a quota.
// Label:
//   - scope: the limiter name (e.g. "login", "register")
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Total number of requests rejected by a rate limit, by scope.",
	},
	[]string{"scope"},
)

// ── Order event metrics ───────────────────────────────────────────────────────

// OrderEventsPublishedTotal counts publication attempts.
// Labels:
//   - type: order.created, order.paid, ...
//   - result: "ok" or "error"
var OrderEventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_events_published_total",
		Help:      "Total number of order event publication attempts, by type and result.",
	},
	[]string{"type", "result"},
)

// OrderEventsDroppedTotal counts events discarded because a worker queue was full
// or the dispatcher had stopped.
var OrderEventsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_events_dropped_total",
		Help:      "Total number of order events dropped before publication, by type.",
	},
	[]string{"type"},
)

// OrderEventsQueueDepth tracks pending events per dispatcher worker.
// Label:
//   - worker_id: numeric worker index
var OrderEventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "order_events_queue_depth",
		Help:      "Current number of order events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// OrderEventPublishDuration measures a single publish call.
var OrderEventPublishDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_event_publish_duration_seconds",
		Help:      "Duration of a single order event publication.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
