// Package order implements the order placement workflow, the status
// lifecycle, and the read-side queries.
package order

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalogdomain "github.com/ovenworks/bakehouse/internal/catalog/domain"
	"github.com/ovenworks/bakehouse/internal/coordinator"
	"github.com/ovenworks/bakehouse/internal/coordinator/sagalog"
	"github.com/ovenworks/bakehouse/internal/identity"
	"github.com/ovenworks/bakehouse/internal/notify"
	"github.com/ovenworks/bakehouse/internal/order/domain"
	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
	"github.com/ovenworks/bakehouse/internal/pkg/cache"
	"github.com/ovenworks/bakehouse/internal/pkg/metrics"
)

const statsCacheTTL = 30 * time.Second

// Inventory is the slice of the catalog the order workflows consume:
// price/availability lookups plus the atomic stock adjustments.
type Inventory interface {
	Get(ctx context.Context, id string) (*catalogdomain.Product, error)
	Reserve(ctx context.Context, id string, qty int) (*catalogdomain.Product, error)
	Release(ctx context.Context, id string, qty int) (*catalogdomain.Product, error)
}

// Pricing holds the policy constants applied at placement time.
type Pricing struct {
	TaxRate     float64
	DeliveryFee float64
}

// ItemInput is one requested line item.
type ItemInput struct {
	ProductID string
	Quantity  int
	Notes     string
}

// PlaceOrderInput is the placement request after transport decoding.
type PlaceOrderInput struct {
	Items                []ItemInput
	DeliveryAddress      domain.Address
	DeliveryInstructions string
	PaymentMethod        domain.PaymentMethod
	Notes                string
}

// Pagination is the metadata returned with listings.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type Service struct {
	orders    Repository
	inventory Inventory
	pricing   Pricing
	events    notify.Publisher
	sagaLog   sagalog.Repository    // nil-safe
	cache     cache.Cache           // nil-safe
	metrics   *metrics.OrderMetrics // nil-safe
}

func NewService(
	orders Repository,
	inventory Inventory,
	pricing Pricing,
	events notify.Publisher,
	sagaLog sagalog.Repository,
	c cache.Cache,
	m *metrics.OrderMetrics,
) *Service {
	if events == nil {
		events = notify.NopPublisher{}
	}
	return &Service{
		orders:    orders,
		inventory: inventory,
		pricing:   pricing,
		events:    events,
		sagaLog:   sagaLog,
		cache:     c,
		metrics:   m,
	}
}

// PlaceOrder runs the placement workflow: validate and price every item
// against the catalog, persist the order, then reserve stock per item. The
// two writes span two aggregates with no shared transaction, so they run as
// a saga — a reservation failure rolls earlier reservations back and removes
// the persisted order.
//
// On success every item's stock is already decremented and the returned
// order's totals are recomputable from its items.
func (s *Service) PlaceOrder(ctx context.Context, ident identity.Identity, in PlaceOrderInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, s.placementFailed(apperror.Validation("order must contain at least one item"))
	}

	// Price snapshot: the catalog price at this moment is authoritative for
	// the order regardless of later changes. The stock check here is a
	// precheck only; the atomic guard lives in the reservation step.
	items := make([]domain.OrderItem, 0, len(in.Items))
	prepMinutes := 0
	for _, req := range in.Items {
		if req.Quantity < 1 {
			return nil, s.placementFailed(apperror.Validation("quantity must be at least 1"))
		}
		p, err := s.inventory.Get(ctx, req.ProductID)
		if err != nil {
			return nil, s.placementFailed(err)
		}
		if !p.IsAvailable {
			return nil, s.placementFailed(apperror.Validation("product %s is currently unavailable", p.Name))
		}
		if p.Stock < req.Quantity {
			return nil, s.placementFailed(apperror.InsufficientStock(p.ID, p.Name))
		}
		items = append(items, domain.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    req.Quantity,
			Price:       p.Price,
			Notes:       req.Notes,
		})
		if p.PreparationTime > prepMinutes {
			prepMinutes = p.PreparationTime
		}
	}

	o, err := domain.NewOrder(
		ident.UserID,
		items,
		domain.Delivery{Address: in.DeliveryAddress, Instructions: in.DeliveryInstructions},
		in.PaymentMethod,
		s.pricing.TaxRate,
		s.pricing.DeliveryFee,
		0,
	)
	if err != nil {
		return nil, s.placementFailed(err)
	}
	o.Notes = in.Notes
	o.EstimatedPreparationMinutes = prepMinutes

	steps := []coordinator.Step{
		&persistOrderStep{repo: s.orders, order: o},
		&reserveStockStep{inv: s.inventory, items: o.Items},
	}
	saga := coordinator.NewOrchestrator(o.OrderNumber, steps, s.sagaLog)
	if err := saga.Start(ctx); err != nil {
		return nil, s.placementFailed(err)
	}

	slog.InfoContext(ctx, "order placed",
		"order_id", o.ID, "order_number", o.OrderNumber,
		"user_id", o.UserID, "total", o.TotalAmount)
	s.countPlacement("placed")
	s.publish(ctx, notify.EventOrderPlaced, o)
	return o, nil
}

// Get returns a single order; reads are owner-or-admin.
func (s *Service) Get(ctx context.Context, ident identity.Identity, orderID string) (*domain.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ident.IsAdmin() && !ident.Owns(o.UserID) {
		return nil, apperror.Authorization("not authorized to access this order")
	}
	return o, nil
}

// List returns the caller's orders (all orders for admins), newest first.
func (s *Service) List(ctx context.Context, ident identity.Identity, page, limit int) ([]domain.Order, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	f := ListFilter{Page: page, Limit: limit}
	if !ident.IsAdmin() {
		f.UserID = ident.UserID
	}
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return orders, Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}

// Cancel cancels a pending order, restoring its reserved stock. The release
// and the status change run as a saga: if the guarded transition fails the
// released stock is re-reserved, so the order is never left cancelled with
// partial restoration — nor pending with stock given back.
func (s *Service) Cancel(ctx context.Context, ident identity.Identity, orderID string) (*domain.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ident.IsAdmin() && !ident.Owns(o.UserID) {
		return nil, apperror.Authorization("not authorized to cancel this order")
	}
	if !o.CanBeCancelled() {
		return nil, apperror.InvalidTransition(string(o.Status), string(domain.StatusCancelled))
	}

	transition := &transitionStatusStep{
		repo:    s.orders,
		orderID: o.ID,
		from:    domain.StatusPending,
		to:      domain.StatusCancelled,
	}
	steps := []coordinator.Step{
		&releaseStockStep{inv: s.inventory, items: o.Items},
		transition,
	}
	saga := coordinator.NewOrchestrator(o.OrderNumber, steps, s.sagaLog)
	if err := saga.Start(ctx); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order cancelled",
		"order_id", o.ID, "order_number", o.OrderNumber, "user_id", o.UserID)
	if s.metrics != nil {
		s.metrics.Cancellations.Inc()
	}
	s.publish(ctx, notify.EventOrderCancelled, transition.updated)
	return transition.updated, nil
}

// UpdateStatus moves an order forward through its lifecycle. Admin only.
// Cancellation is rejected here: it must go through Cancel so the
// compensating stock release always runs.
func (s *Service) UpdateStatus(ctx context.Context, ident identity.Identity, orderID string, to domain.Status) (*domain.Order, error) {
	if !ident.IsAdmin() {
		return nil, apperror.Authorization("not authorized to update order status")
	}
	if !to.Valid() {
		return nil, apperror.Validation("invalid order status %q", to)
	}
	if to == domain.StatusCancelled {
		return nil, apperror.Validation("use the cancel endpoint to cancel an order")
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(to) {
		return nil, apperror.InvalidTransition(string(o.Status), string(to))
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, o.Status, to)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order status updated",
		"order_id", updated.ID, "from", string(o.Status), "to", string(to))
	s.publish(ctx, notify.EventOrderStatusChanged, updated)
	return updated, nil
}

// Stats groups the caller's orders (all orders for admins) by status.
// Results are cached briefly; staleness within the TTL is acceptable for a
// dashboard read.
func (s *Service) Stats(ctx context.Context, ident identity.Identity) ([]StatusStat, error) {
	scope := "all"
	userID := ""
	if !ident.IsAdmin() {
		scope = ident.UserID
		userID = ident.UserID
	}

	var key string
	if s.cache != nil {
		key = s.cache.GenerateKey("order_stats", scope)
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
			var stats []StatusStat
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.orders.StatsByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, key, string(payload), statsCacheTTL); err != nil {
				slog.WarnContext(ctx, "stats cache write failed", "error", err)
			}
		}
	}
	return stats, nil
}

func (s *Service) publish(ctx context.Context, eventType string, o *domain.Order) {
	if o == nil {
		return
	}
	event := notify.OrderEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "order event publish failed",
			"event_type", eventType, "order_id", o.ID, "error", err)
	}
}

func (s *Service) placementFailed(err error) error {
	switch apperror.KindOf(err) {
	case apperror.KindInternal:
		s.countPlacement("failed")
	default:
		s.countPlacement("rejected")
	}
	return err
}

func (s *Service) countPlacement(result string) {
	if s.metrics != nil {
		s.metrics.Placements.WithLabelValues(result).Inc()
	}
}
