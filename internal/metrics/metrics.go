package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Requests served to the presentational layer",
		},
		[]string{"method", "endpoint", "status"},
	)

	gatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_gateway_calls_total",
			Help: "Calls made to the remote catalog/order gateway",
		},
		[]string{"operation", "result"},
	)

	gatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_gateway_call_duration_seconds",
			Help:    "Gateway call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	reservationDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_reservation_dropped_total",
			Help: "Quantity changes dropped because the same line already had a request in flight",
		},
	)

	checkoutTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_transitions_total",
			Help: "Checkout orchestrator state transitions",
		},
		[]string{"from", "to"},
	)

	ordersPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Order placement attempts by payment method and outcome",
		},
		[]string{"payment_method", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		gatewayCallsTotal,
		gatewayCallDuration,
		reservationDroppedTotal,
		checkoutTransitionsTotal,
		ordersPlacedTotal,
	)
}

// Middleware counts requests by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ObserveGatewayCall records one gateway round trip.
func ObserveGatewayCall(operation string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	gatewayCallsTotal.WithLabelValues(operation, result).Inc()
	gatewayCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordReservationDropped counts a single-flight drop.
func RecordReservationDropped() {
	reservationDroppedTotal.Inc()
}

// RecordCheckoutTransition counts an orchestrator state change.
func RecordCheckoutTransition(from, to string) {
	checkoutTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordOrderPlaced counts a placement attempt.
func RecordOrderPlaced(paymentMethod, outcome string) {
	ordersPlacedTotal.WithLabelValues(paymentMethod, outcome).Inc()
}
