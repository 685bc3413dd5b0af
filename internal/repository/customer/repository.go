package customer

import (
	"context"

	"coffeeshop/internal/domain"
)

// NewCustomer describes a customer to create together with its first
// identity. Exactly one of ChatID or AccountID is set.
type NewCustomer struct {
	ChatID          *int64
	ChatDisplayName string
	AccountID       *string
	Name            string
	Phone           *string
}

// Repository persists customers and their linked identities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	FindByChatID(ctx context.Context, chatID int64) (*domain.Customer, error)
	FindByAccountID(ctx context.Context, accountID string) (*domain.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	// Create inserts the customer, returning domain.ErrAlreadyExists when any
	// of its identities or its phone is already taken.
	Create(ctx context.Context, in NewCustomer) (*domain.Customer, error)
	// LinkChat attaches a chat identity to a customer that has none or only a
	// synthetic one.
	LinkChat(ctx context.Context, customerID string, chatID int64, displayName string) (*domain.Customer, error)
	LinkAccount(ctx context.Context, customerID, accountID string) (*domain.Customer, error)
	RefreshChatName(ctx context.Context, chatID int64, displayName string) error
	SetPhone(ctx context.Context, customerID, phone string) (*domain.Customer, error)
	SetName(ctx context.Context, customerID, name string) (*domain.Customer, error)
	// AbsorbWalkIn folds a walk-in customer into keepID: orders move over, the
	// walk-in cart and record are removed and its phone is given to keepID.
	AbsorbWalkIn(ctx context.Context, keepID, walkInID string) (*domain.Customer, error)
}
