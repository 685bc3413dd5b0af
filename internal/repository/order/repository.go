package order

import (
	"context"

	"coffeeshop/internal/domain"
)

// CheckoutInput is a validated checkout request.
type CheckoutInput struct {
	CustomerID  string
	Fulfillment domain.Fulfillment
	Address     *string
}

type Repository interface {
	// CreateFromCart converts the customer's cart into an order and empties
	// the cart, all in one transaction.
	CreateFromCart(ctx context.Context, in CheckoutInput) (*domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	// UpdateStatus locks the order, asks check whether the change from its
	// current status is allowed, and stores the new status.
	UpdateStatus(ctx context.Context, id int64, to domain.OrderStatus, check func(from domain.OrderStatus) error) (*domain.Order, error)
}
