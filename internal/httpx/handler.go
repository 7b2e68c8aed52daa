package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ovenworks/bakehouse/internal/identity"
	"github.com/ovenworks/bakehouse/internal/order"
	"github.com/ovenworks/bakehouse/internal/order/domain"
	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
)

// OrderService is the order-facing port the handler depends on, implemented
// by *order.Service.
type OrderService interface {
	PlaceOrder(ctx context.Context, ident identity.Identity, in order.PlaceOrderInput) (*domain.Order, error)
	Get(ctx context.Context, ident identity.Identity, orderID string) (*domain.Order, error)
	List(ctx context.Context, ident identity.Identity, page, limit int) ([]domain.Order, order.Pagination, error)
	Cancel(ctx context.Context, ident identity.Identity, orderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, ident identity.Identity, orderID string, to domain.Status) (*domain.Order, error)
	Stats(ctx context.Context, ident identity.Identity) ([]order.StatusStat, error)
}

// OrderHandler handles the /orders routes.
type OrderHandler struct {
	orders OrderService
}

func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder decodes the placement request and runs the workflow.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Authentication("identity required"))
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperror.Validation("invalid JSON body"))
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, apperror.Validation("order must contain at least one item"))
		return
	}

	items := make([]order.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Product == "" {
			writeError(w, r, apperror.Validation("item product is required"))
			return
		}
		if it.Quantity < 1 {
			writeError(w, r, apperror.Validation("quantity must be at least 1"))
			return
		}
		items = append(items, order.ItemInput{
			ProductID: it.Product,
			Quantity:  it.Quantity,
			Notes:     it.Notes,
		})
	}

	o, err := h.orders.PlaceOrder(r.Context(), ident, order.PlaceOrderInput{
		Items: items,
		DeliveryAddress: domain.Address{
			Street:     req.DeliveryAddress.Street,
			City:       req.DeliveryAddress.City,
			State:      req.DeliveryAddress.State,
			PostalCode: req.DeliveryAddress.PostalCode,
			Country:    req.DeliveryAddress.Country,
		},
		DeliveryInstructions: req.DeliveryInstructions,
		PaymentMethod:        domain.PaymentMethod(req.PaymentMethod),
		Notes:                req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(o))
}

func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Authentication("identity required"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, pagination, err := h.orders.List(r.Context(), ident, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]OrderResponse, len(orders))
	for i := range orders {
		data[i] = mapOrderToResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, OrderListResponse{Data: data, Pagination: pagination})
}

func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Authentication("identity required"))
		return
	}

	o, err := h.orders.Get(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

// UpdateOrderStatus is the admin-only forward transition endpoint.
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Authentication("identity required"))
		return
	}

	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperror.Validation("invalid JSON body"))
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), ident, chi.URLParam(r, "id"), domain.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Authentication("identity required"))
		return
	}

	o, err := h.orders.Cancel(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *OrderHandler) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Authentication("identity required"))
		return
	}

	stats, err := h.orders.Stats(r.Context(), ident)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
