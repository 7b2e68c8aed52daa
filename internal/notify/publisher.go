// Package notify publishes order lifecycle events so downstream consumers
// (receipt mailers, kitchen displays, analytics) can react without the order
// workflows knowing about them.
package notify

import (
	"context"
	"time"
)

// Event types emitted by the order workflows.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload published for every order lifecycle change.
type OrderEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher is the port for emitting order events. Publishing is best-effort
// from the caller's perspective: workflows log failures but never fail the
// business operation over them.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// NopPublisher discards events; used when no broker is configured and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event OrderEvent) error { return nil }
