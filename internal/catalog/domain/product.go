package domain

import (
	"time"

	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
)

// Product is a catalog entry. Stock is never negative; IsAvailable is forced
// to false whenever an adjustment leaves stock at zero, and a release never
// reactivates a product on its own — a manually disabled product stays
// disabled until an operator flips it back.
type Product struct {
	ID              string
	Name            string
	Description     string
	Price           float64
	Category        string
	Stock           int
	IsAvailable     bool
	PreparationTime int // minutes
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the fields an operator supplies when creating a product.
func (p *Product) Validate() error {
	if p.Name == "" {
		return apperror.Validation("product name is required")
	}
	if len(p.Name) > 100 {
		return apperror.Validation("product name cannot exceed 100 characters")
	}
	if p.Price < 0 {
		return apperror.Validation("price cannot be negative")
	}
	if p.Stock < 0 {
		return apperror.Validation("stock cannot be negative")
	}
	if p.PreparationTime < 0 {
		return apperror.Validation("preparation time cannot be negative")
	}
	return nil
}
