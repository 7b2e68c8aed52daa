package order

import (
	"context"
	"errors"

	"github.com/ovenworks/bakehouse/internal/order/domain"
)

// ErrDuplicateOrderNumber is returned by Create when the generated order
// number collides with an existing one; the caller regenerates and retries.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// ListFilter scopes and pages an order listing. Empty UserID means no owner
// filter (admin view).
type ListFilter struct {
	UserID string
	Page   int
	Limit  int
}

// StatusStat is one row of the stats aggregation.
type StatusStat struct {
	Status      domain.Status `json:"status"`
	Count       int64         `json:"count"`
	TotalAmount float64       `json:"totalAmount"`
}

// Repository is the storage port for the order aggregate.
type Repository interface {
	Create(ctx context.Context, o *domain.Order) error

	// Delete removes an order document. Only the placement saga's
	// compensation uses it; orders are never deleted in normal operation.
	Delete(ctx context.Context, id string) error

	FindByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders newest-first plus the unpaged total.
	List(ctx context.Context, f ListFilter) ([]domain.Order, int64, error)

	// UpdateStatus performs a conditional transition: the update only applies
	// while the stored status still equals from, so concurrent transitions
	// cannot interleave. Returns the updated order, or an
	// invalid_state_transition error when the guard fails.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status) (*domain.Order, error)

	// StatsByStatus groups orders by status. Empty userID aggregates over
	// all orders.
	StatsByStatus(ctx context.Context, userID string) ([]StatusStat, error)
}
