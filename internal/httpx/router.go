package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/merchkit/order-service/internal/pkg/metrics"
)

// NewRouter assembles the service routes. The auth middleware guards the
// whole /orders subtree; /metrics stays open for the scraper.
func NewRouter(handler *Handler, auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/orders", func(r chi.Router) {
		r.Use(auth)
		r.Post("/", handler.CreateOrder)
		r.Get("/my-orders", handler.ListMyOrders)
		r.Get("/user/{userID}", handler.ListUserOrders)
		r.Get("/user/{userID}/purchased/{productID}", handler.HasPurchased)
		r.Get("/{id}", handler.GetOrder)
		r.Put("/{id}/status", handler.UpdateStatus)
	})

	return otelhttp.NewHandler(r, "order-service")
}
