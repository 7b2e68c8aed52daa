// Package domain holds the order aggregate: line items, totals, the payment
// and delivery sub-records, and the status state machine.
package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// transitions is the allowed-next-state table. Forward progress is strictly
// ordered; cancellation is only reachable from pending; cancelled and
// completed are terminal.
var transitions = map[Status][]Status{
	StatusPending:        {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusPreparing},
	StatusPreparing:      {StatusReady},
	StatusReady:          {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {StatusCompleted},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// Valid reports whether s is an enumerated status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is permitted out of s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransitionTo reports whether s -> to is a legal transition.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentAuthorized        PaymentStatus = "authorized"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodEWallet      PaymentMethod = "e_wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodDebitCard, MethodBankTransfer, MethodEWallet:
		return true
	}
	return false
}

// Address is the required delivery destination.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Validate checks that every required field is present.
func (a Address) Validate() error {
	switch {
	case a.Street == "":
		return apperror.Validation("delivery address: street is required")
	case a.City == "":
		return apperror.Validation("delivery address: city is required")
	case a.State == "":
		return apperror.Validation("delivery address: state is required")
	case a.PostalCode == "":
		return apperror.Validation("delivery address: postal code is required")
	case a.Country == "":
		return apperror.Validation("delivery address: country is required")
	}
	return nil
}

// OrderItem is a value type embedded in the order. Price and product name are
// snapshots captured at placement time and never track later catalog changes.
type OrderItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	Price       float64
	Subtotal    float64
	Notes       string
}

// Payment is the embedded payment record.
type Payment struct {
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	PaidAmount    float64
	PaidAt        *time.Time
}

// Delivery is the embedded delivery record.
type Delivery struct {
	Address        Address
	Instructions   string
	EstimatedTime  *time.Time
	ActualTime     *time.Time
	TrackingNumber string
}

// Order is the root aggregate. It is created by the placement workflow and
// never physically deleted in normal operation; cancellation is a terminal
// status, not a removal.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Items       []OrderItem
	Subtotal    float64
	Tax         float64
	Discount    float64
	DeliveryFee float64
	TotalAmount float64
	Status      Status
	Payment     Payment
	Delivery    Delivery
	Notes       string

	EstimatedPreparationMinutes int
	PreparationStartedAt        *time.Time
	PreparationCompletedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder builds a pending order from priced items. Totals are computed
// here, never taken from the caller; taxRate is the fraction of the subtotal
// charged as tax.
func NewOrder(userID string, items []OrderItem, delivery Delivery, method PaymentMethod, taxRate, deliveryFee, discount float64) (*Order, error) {
	if userID == "" {
		return nil, apperror.Validation("user is required")
	}
	if len(items) == 0 {
		return nil, apperror.Validation("order must contain at least one item")
	}
	if !method.Valid() {
		return nil, apperror.Validation("invalid payment method %q", method)
	}
	if err := delivery.Address.Validate(); err != nil {
		return nil, err
	}
	if deliveryFee < 0 {
		return nil, apperror.Validation("delivery fee cannot be negative")
	}
	if discount < 0 {
		return nil, apperror.Validation("discount cannot be negative")
	}
	for i := range items {
		if items[i].Quantity < 1 {
			return nil, apperror.Validation("quantity must be at least 1")
		}
		if items[i].Price < 0 {
			return nil, apperror.Validation("price cannot be negative")
		}
	}

	now := time.Now().UTC()
	o := &Order{
		OrderNumber: GenerateOrderNumber(now),
		UserID:      userID,
		Items:       items,
		Discount:    discount,
		DeliveryFee: deliveryFee,
		Status:      StatusPending,
		Payment:     Payment{Method: method, Status: PaymentPending},
		Delivery:    delivery,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	o.CalculateTotals(taxRate)
	if o.TotalAmount < 0 {
		return nil, apperror.Validation("total amount cannot be negative")
	}
	return o, nil
}

// CalculateTotals recomputes every derived amount from the current items.
// Called whenever items change so stored totals can always be reproduced.
func (o *Order) CalculateTotals(taxRate float64) {
	var subtotal float64
	for i := range o.Items {
		o.Items[i].Subtotal = round2(o.Items[i].Price * float64(o.Items[i].Quantity))
		subtotal += o.Items[i].Subtotal
	}
	o.Subtotal = round2(subtotal)
	o.Tax = round2(o.Subtotal * taxRate)
	o.TotalAmount = round2(o.Subtotal + o.Tax + o.DeliveryFee - o.Discount)
}

// CanBeCancelled reports whether the compensating cancellation path is open.
// Only pending orders may be cancelled.
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending
}

// GenerateOrderNumber produces a human-readable order number in the form
// ORD-YYMMDD-NNNN. The random suffix keeps same-day collisions rare; the
// storage layer's unique index catches the remainder and the caller retries
// with a fresh number.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("060102"), rand.IntN(10000))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
