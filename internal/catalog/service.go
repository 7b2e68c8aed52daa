// Package catalog exposes product lookups and the inventory adjustment
// operations consumed by the order workflows.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/ovenworks/bakehouse/internal/catalog/domain"
	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
	"github.com/ovenworks/bakehouse/internal/pkg/metrics"
)

type Service struct {
	repo    Repository
	metrics *metrics.OrderMetrics // nil-safe
}

func NewService(repo Repository, m *metrics.OrderMetrics) *Service {
	return &Service{repo: repo, metrics: m}
}

// Create registers a new product. Admin only; the caller enforces that.
func (s *Service) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Stock == 0 {
		p.IsAvailable = false
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Product, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	return s.repo.List(ctx, f)
}

// Reserve holds qty units of a product for an order.
func (s *Service) Reserve(ctx context.Context, id string, qty int) (*domain.Product, error) {
	if qty < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}
	p, err := s.repo.Reserve(ctx, id, qty)
	s.count("reserve", err)
	return p, err
}

// Release returns qty units of a product, e.g. after a cancellation or a
// failed multi-item reservation.
func (s *Service) Release(ctx context.Context, id string, qty int) (*domain.Product, error) {
	if qty < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}
	p, err := s.repo.Release(ctx, id, qty)
	s.count("release", err)
	return p, err
}

// AdjustStock applies an operator-driven delta through the same atomic
// operations the order workflows use.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	switch {
	case delta > 0:
		return s.Release(ctx, id, delta)
	case delta < 0:
		return s.Reserve(ctx, id, -delta)
	default:
		return nil, apperror.Validation("stock delta must be non-zero")
	}
}

func (s *Service) count(op string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(apperror.KindOf(err))
	}
	s.metrics.StockAdjustments.WithLabelValues(op, result).Inc()
}
