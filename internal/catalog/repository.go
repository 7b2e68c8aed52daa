package catalog

import (
	"context"

	"github.com/ovenworks/bakehouse/internal/catalog/domain"
)

// ListFilter narrows and pages a catalog listing.
type ListFilter struct {
	// AvailableOnly hides products that are out of stock or disabled.
	AvailableOnly bool
	Category      string
	Page          int
	Limit         int
}

// Repository is the storage port for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *domain.Product) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, f ListFilter) ([]domain.Product, int64, error)

	// Reserve atomically decrements stock by qty, failing with
	// insufficient_stock when the decrement would go negative. The
	// availability flag flips to false in the same atomic update when the
	// resulting stock is zero.
	Reserve(ctx context.Context, id string, qty int) (*domain.Product, error)

	// Release atomically increments stock by qty. Restoring stock is always
	// legal and never re-enables a disabled product.
	Release(ctx context.Context, id string, qty int) (*domain.Product, error)
}
