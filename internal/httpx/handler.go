// Package httpx is the thin HTTP surface over the order workflow: routing,
// request validation, identity checks and the error-to-status mapping. All
// business behaviour lives behind the two service ports.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/merchkit/order-service/internal/httpx/middlewares"
	"github.com/merchkit/order-service/internal/order/domain"
	"github.com/merchkit/order-service/internal/order/orchestrator"
)

// OrderService is the write-side port consumed by the handlers.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd orchestrator.CreateOrderCommand) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, authToken string) (*domain.Order, error)
}

// OrderQueries is the read-side port consumed by the handlers.
type OrderQueries interface {
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	HasUserPurchased(ctx context.Context, userID, productID string) (bool, error)
}

// Handler handles the order endpoints.
type Handler struct {
	service  OrderService
	queries  OrderQueries
	validate *validatorv10.Validate
}

func NewHandler(service OrderService, queries OrderQueries) *Handler {
	return &Handler{
		service:  service,
		queries:  queries,
		validate: validatorv10.New(),
	}
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", validationMessage(err))
		return
	}

	slog.InfoContext(r.Context(), "creating order", "user_id", identity.UserID)

	order, err := h.service.CreateOrder(r.Context(), orchestrator.CreateOrderCommand{
		UserID:          identity.UserID,
		ShippingAddress: toAddress(req.ShippingAddress),
		BillingAddress:  toAddress(req.BillingAddress),
		PaymentMethod:   req.PaymentMethod,
		AuthToken:       middlewares.TokenFromContext(r.Context()),
	})
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// GetOrder handles GET /orders/{id}. Only the owner or an admin may read
// an order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	orderID := chi.URLParam(r, "id")

	order, err := h.queries.GetOrderByID(r.Context(), orderID)
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	if order.UserID != identity.UserID && !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden", "not the owner")
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// ListMyOrders handles GET /orders/my-orders.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	h.listOrders(w, r, identity.UserID)
}

// ListUserOrders handles GET /orders/user/{userID} — owner or admin only.
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	userID := chi.URLParam(r, "userID")
	if userID != identity.UserID && !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden", "not the owner")
		return
	}
	h.listOrders(w, r, userID)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, userID string) {
	orders, err := h.queries.ListUserOrders(r.Context(), userID)
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = mapOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateStatus handles PUT /orders/{id}/status — admin only. CANCELLED
// additionally triggers the best-effort stock restoration.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	if !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden", "admin only")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", validationMessage(err))
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), status,
		middlewares.TokenFromContext(r.Context()))
	if err != nil {
		st, code := mapError(err)
		writeError(w, st, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// HasPurchased handles GET /orders/user/{userID}/purchased/{productID}.
// Consumed by the review service to gate verified-purchase content; any
// authenticated caller on the internal network may ask.
func (h *Handler) HasPurchased(w http.ResponseWriter, r *http.Request) {
	if _, ok := middlewares.IdentityFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	purchased, err := h.queries.HasUserPurchased(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "productID"))
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PurchasedResponse{Purchased: purchased})
}

// mapError translates the domain taxonomy into HTTP status codes. Note the
// post-persistence cases: they are client-visible errors even though an
// order row already exists behind them.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart"
	case errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest, "invalid_order"
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status"
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, domain.ErrProductUnavailable):
		return http.StatusConflict, "product_unavailable"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, domain.ErrStockConflict):
		return http.StatusConflict, "stock_conflict"
	case errors.Is(err, domain.ErrProductGone):
		return http.StatusConflict, "product_gone"
	case errors.Is(err, domain.ErrCartUnreachable):
		return http.StatusServiceUnavailable, "cart_unreachable"
	case errors.Is(err, domain.ErrCatalogUnreachable):
		return http.StatusServiceUnavailable, "catalog_unreachable"
	case errors.Is(err, domain.ErrStockUpdateFailed):
		return http.StatusBadGateway, "stock_update_failed"
	case errors.Is(err, domain.ErrOrderUpdateFailed):
		return http.StatusInternalServerError, "order_update_failed"
	case errors.Is(err, domain.ErrStorage):
		return http.StatusInternalServerError, "storage_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// validationMessage flattens validator errors into one line; the field
// namespaces are enough for API consumers to locate the problem.
func validationMessage(err error) string {
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
