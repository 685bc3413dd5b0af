package catalog

import (
	"context"

	"coffeeshop/internal/domain"
)

// Repository reads and maintains the menu.
type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListAvailableItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error)
	GetItem(ctx context.Context, id string) (*domain.MenuItem, error)
	UpsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error)
	UpsertItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	SetPrice(ctx context.Context, id string, priceCents int64) error
	SetAvailability(ctx context.Context, id string, available bool) error
}
