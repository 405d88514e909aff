// Package metrics registers the prometheus instruments of the order
// workflow and exposes the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OrderMetrics counts workflow outcomes. The stranded-order counter exists
// because a failed stock decrement leaves a PENDING row behind with no
// cleanup job — the metric is the only systematic way to notice them.
type OrderMetrics struct {
	OrdersCreated    *prometheus.CounterVec
	StockAdjustFails prometheus.Counter
	StrandedOrders   prometheus.Counter
	CreateLatencyMS  prometheus.Histogram
}

func NewOrderMetrics() *OrderMetrics {
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orders",
		Name:      "created_total",
		Help:      "Order creation attempts by outcome.",
	}, []string{"outcome"})
	stockFails := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orders",
		Name:      "stock_adjustment_failures_total",
		Help:      "Failed stock adjustment calls (decrement and restore).",
	})
	stranded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orders",
		Name:      "stranded_pending_total",
		Help:      "Orders left PENDING after a post-persistence failure.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orders",
		Name:      "create_duration_ms",
		Help:      "End-to-end order creation latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	prometheus.MustRegister(created, stockFails, stranded, latency)
	return &OrderMetrics{
		OrdersCreated:    created,
		StockAdjustFails: stockFails,
		StrandedOrders:   stranded,
		CreateLatencyMS:  latency,
	}
}

// Handler returns the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
