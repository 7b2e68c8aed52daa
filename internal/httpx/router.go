// Package httpx exposes the HTTP surface of the service: the orders API,
// the product catalog, and the operational endpoints.
package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ovenworks/bakehouse/internal/httpx/middlewares"
	"github.com/ovenworks/bakehouse/internal/pkg/metrics"
)

func NewRouter(orders *OrderHandler, products *CatalogHandler, m *metrics.ServerMetrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(middlewares.Instrument(m))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// The catalog read side is public; everything else requires the
	// verified identity attached by the fronting auth layer.
	r.Get("/products", products.ListProducts)
	r.Get("/products/{id}", products.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(middlewares.RequireIdentity)

		r.Post("/products", products.CreateProduct)
		r.Patch("/products/{id}/stock", products.AdjustStock)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orders.CreateOrder)
			r.Get("/", orders.GetOrders)
			r.Get("/stats", orders.GetOrderStats)
			r.Get("/{id}", orders.GetOrderByID)
			r.Patch("/{id}", orders.UpdateOrderStatus)
			r.Post("/{id}/cancel", orders.CancelOrder)
		})
	})

	return r
}
