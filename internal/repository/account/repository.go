package account

import (
	"context"

	"coffeeshop/internal/domain"
)

// Repository persists and fetches web accounts.
type Repository interface {
	Create(ctx context.Context, a domain.Account) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}
