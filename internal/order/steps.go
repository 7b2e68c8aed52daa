package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ovenworks/bakehouse/internal/order/domain"
)

// Retry policy for compensating stock releases. A failed release leaves
// inventory permanently understated, which is worse than a failed forward
// operation, so releases get bounded local retries before surfacing.
const (
	releaseAttempts = 3
	releaseBackoff  = 100 * time.Millisecond
)

// orderNumberAttempts bounds regeneration on an order-number collision.
const orderNumberAttempts = 3

// persistOrderStep inserts the pending order document. Its compensation
// removes the document again so a failed placement leaves no half-created
// order behind.
type persistOrderStep struct {
	repo  Repository
	order *domain.Order
}

func (s *persistOrderStep) Name() string { return "persist_order" }

func (s *persistOrderStep) Execute(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		err = s.repo.Create(ctx, s.order)
		if !errors.Is(err, ErrDuplicateOrderNumber) {
			return err
		}
		// Collision on the unique index: regenerate the suffix and retry.
		s.order.OrderNumber = domain.GenerateOrderNumber(time.Now().UTC())
	}
	return err
}

func (s *persistOrderStep) Compensate(ctx context.Context) error {
	return s.repo.Delete(ctx, s.order.ID)
}

// reserveStockStep decrements stock for every line item. If a reservation
// fails midway, the step releases its own partial reservations before
// returning, so the orchestrator's compensate-completed-steps contract holds.
type reserveStockStep struct {
	inv      Inventory
	items    []domain.OrderItem
	reserved []domain.OrderItem
}

func (s *reserveStockStep) Name() string { return "reserve_stock" }

func (s *reserveStockStep) Execute(ctx context.Context) error {
	for _, it := range s.items {
		if _, err := s.inv.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			s.releaseReserved(ctx)
			return err
		}
		s.reserved = append(s.reserved, it)
	}
	return nil
}

func (s *reserveStockStep) Compensate(ctx context.Context) error {
	s.releaseReserved(ctx)
	return nil
}

func (s *reserveStockStep) releaseReserved(ctx context.Context) {
	for i := len(s.reserved) - 1; i >= 0; i-- {
		it := s.reserved[i]
		if err := releaseWithRetry(ctx, s.inv, it.ProductID, it.Quantity); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: could not release reserved stock",
				"product_id", it.ProductID, "quantity", it.Quantity, "error", err)
		}
	}
	s.reserved = nil
}

// releaseStockStep restores stock for every line item of a cancelled order.
// Its compensation re-reserves what it released, so a cancellation that
// fails after this step leaves stock exactly as it found it.
type releaseStockStep struct {
	inv      Inventory
	items    []domain.OrderItem
	released []domain.OrderItem
}

func (s *releaseStockStep) Name() string { return "release_stock" }

func (s *releaseStockStep) Execute(ctx context.Context) error {
	for _, it := range s.items {
		if err := releaseWithRetry(ctx, s.inv, it.ProductID, it.Quantity); err != nil {
			s.rereserve(ctx)
			return err
		}
		s.released = append(s.released, it)
	}
	return nil
}

func (s *releaseStockStep) Compensate(ctx context.Context) error {
	s.rereserve(ctx)
	return nil
}

func (s *releaseStockStep) rereserve(ctx context.Context) {
	for i := len(s.released) - 1; i >= 0; i-- {
		it := s.released[i]
		if _, err := s.inv.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: could not re-reserve released stock",
				"product_id", it.ProductID, "quantity", it.Quantity, "error", err)
		}
	}
	s.released = nil
}

// transitionStatusStep performs a guarded status transition and remembers
// the updated order. Compensation reverts the transition.
type transitionStatusStep struct {
	repo    Repository
	orderID string
	from    domain.Status
	to      domain.Status
	updated *domain.Order
}

func (s *transitionStatusStep) Name() string { return "transition_status" }

func (s *transitionStatusStep) Execute(ctx context.Context) error {
	o, err := s.repo.UpdateStatus(ctx, s.orderID, s.from, s.to)
	if err != nil {
		return err
	}
	s.updated = o
	return nil
}

func (s *transitionStatusStep) Compensate(ctx context.Context) error {
	_, err := s.repo.UpdateStatus(ctx, s.orderID, s.to, s.from)
	return err
}

// releaseWithRetry retries transient release failures a bounded number of
// times before giving up.
func releaseWithRetry(ctx context.Context, inv Inventory, productID string, qty int) error {
	var err error
	for attempt := 0; attempt < releaseAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(releaseBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if _, err = inv.Release(ctx, productID, qty); err == nil {
			return nil
		}
	}
	return err
}
