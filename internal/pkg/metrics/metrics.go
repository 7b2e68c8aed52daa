// Package metrics registers the Prometheus instruments for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics instruments the HTTP surface.
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

// OrderMetrics instruments the order workflows.
type OrderMetrics struct {
	// Placements counts order placement attempts by result
	// (placed, rejected, failed).
	Placements *prometheus.CounterVec
	// StockAdjustments counts reserve/release operations by op and result.
	StockAdjustments *prometheus.CounterVec
	// Cancellations counts successful order cancellations.
	Cancellations prometheus.Counter
}

func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakehouse",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bakehouse",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	prometheus.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

func NewOrderMetrics() *OrderMetrics {
	placements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakehouse",
		Subsystem: "orders",
		Name:      "placements_total",
		Help:      "Order placement attempts by result.",
	}, []string{"result"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakehouse",
		Subsystem: "inventory",
		Name:      "stock_adjustments_total",
		Help:      "Stock reserve/release operations by result.",
	}, []string{"op", "result"})
	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bakehouse",
		Subsystem: "orders",
		Name:      "cancellations_total",
		Help:      "Successfully cancelled orders.",
	})

	prometheus.MustRegister(placements, adjustments, cancellations)
	return &OrderMetrics{
		Placements:       placements,
		StockAdjustments: adjustments,
		Cancellations:    cancellations,
	}
}

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
