package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCompleted OrderStatus = "completed"
	StatusCanceled  OrderStatus = "canceled"
)

// legalSuccessors is the only place order transitions are defined.
var legalSuccessors = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusCompleted, StatusCanceled},
	StatusCompleted: nil,
	StatusCanceled:  nil,
}

// ParseOrderStatus accepts a status name in any case.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := legalSuccessors[status]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
	}
	return status, nil
}

// Terminal reports whether no transition leaves the status.
func (s OrderStatus) Terminal() bool {
	return len(legalSuccessors[s]) == 0
}

// NextStatuses lists the statuses an order in from may move to.
func NextStatuses(from OrderStatus) []OrderStatus {
	next := legalSuccessors[from]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition checks a status change against the legal-successor table.
// It is actor-agnostic: callers decide who may ask.
func CanTransition(from, to OrderStatus) error {
	if _, ok := legalSuccessors[from]; !ok {
		return fmt.Errorf("%w: unknown current status %q", ErrInvalidTransition, from)
	}
	for _, s := range legalSuccessors[from] {
		if s == to {
			return nil
		}
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	return fmt.Errorf("%w: %s -> %s (allowed: %s)", ErrInvalidTransition, from, to, describeStatuses(legalSuccessors[from]))
}

func describeStatuses(statuses []OrderStatus) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ", ")
}

// Fulfillment is how the customer receives the order.
type Fulfillment string

const (
	FulfillmentDelivery Fulfillment = "delivery"
	FulfillmentPickup   Fulfillment = "pickup"
)

func ParseFulfillment(s string) (Fulfillment, error) {
	switch f := Fulfillment(strings.ToLower(strings.TrimSpace(s))); f {
	case FulfillmentDelivery, FulfillmentPickup:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown fulfillment type %q", ErrValidation, s)
	}
}

// Order is an immutable snapshot of a checked-out cart; only Status and
// UpdatedAt change after creation.
type Order struct {
	ID          int64       `json:"id"`
	CustomerID  string      `json:"customerId"`
	Fulfillment Fulfillment `json:"fulfillment"`
	Address     *string     `json:"address,omitempty"`
	TotalCents  int64       `json:"totalCents"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Lines       []OrderLine `json:"lines,omitempty"`
}

// OrderLine freezes the item name and unit price at checkout time.
type OrderLine struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"orderId"`
	ItemID         string `json:"itemId"`
	ItemName       string `json:"itemName"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

func (l OrderLine) TotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// LinesTotal sums price*quantity over order lines.
func LinesTotal(lines []OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.TotalCents()
	}
	return total
}

// OrderFilter narrows staff order listings. Zero values match everything.
type OrderFilter struct {
	ID     int64
	Status OrderStatus
	Limit  int
}
