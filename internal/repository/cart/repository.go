package cart

import (
	"context"

	"coffeeshop/internal/domain"
)

// Repository owns the per-customer basket. Every mutation runs in its own
// transaction holding the customer's cart row lock.
type Repository interface {
	// Get returns the active cart with its lines joined to current catalog
	// rows, or domain.ErrNotFound when the customer has no cart yet.
	Get(ctx context.Context, customerID string) (*domain.Cart, error)
	AddItem(ctx context.Context, customerID, itemID string) (int, error)
	SetQuantity(ctx context.Context, customerID, itemID string, quantity int) error
	Decrement(ctx context.Context, customerID, itemID string) (int, error)
	RemoveItem(ctx context.Context, customerID, itemID string) error
	Clear(ctx context.Context, customerID string) error
}
