// Package seed loads a small demo menu and a staff account for manual testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"coffeeshop/internal/domain"
	accountsvc "coffeeshop/internal/service/account"
)

// CatalogWriter is the catalog surface the seed writes through.
type CatalogWriter interface {
	UpsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error)
	UpsertItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
}

type StaffCreator interface {
	CreateStaff(ctx context.Context, in accountsvc.SignupInput) (*domain.Account, error)
}

type itemSeed struct {
	Name        string
	Description string
	PriceCents  int64
}

type categorySeed struct {
	Name  string
	Emoji string
	Items []itemSeed
}

var demoMenu = []categorySeed{
	{Name: "Coffee", Emoji: "☕", Items: []itemSeed{
		{Name: "Espresso", Description: "Double shot", PriceCents: 250},
		{Name: "Americano", Description: "Espresso with hot water", PriceCents: 300},
		{Name: "Cappuccino", Description: "Espresso, steamed milk and foam", PriceCents: 380},
		{Name: "Latte", Description: "Espresso with lots of steamed milk", PriceCents: 400},
		{Name: "Flat White", PriceCents: 420},
	}},
	{Name: "Tea", Emoji: "🍵", Items: []itemSeed{
		{Name: "Green Tea", PriceCents: 250},
		{Name: "Earl Grey", PriceCents: 250},
		{Name: "Matcha Latte", Description: "Ceremonial matcha with oat milk", PriceCents: 450},
	}},
	{Name: "Pastries", Emoji: "🥐", Items: []itemSeed{
		{Name: "Croissant", PriceCents: 280},
		{Name: "Cinnamon Roll", PriceCents: 320},
		{Name: "Blueberry Muffin", PriceCents: 300},
	}},
}

// Apply upserts the demo menu and creates the staff account. It is
// idempotent: rerunning it updates the menu and keeps the existing account.
func Apply(ctx context.Context, catalog CatalogWriter, accounts StaffCreator, staff accountsvc.SignupInput, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	for i, cs := range demoMenu {
		cat, err := catalog.UpsertCategory(ctx, domain.Category{Name: cs.Name, Emoji: cs.Emoji, SortOrder: i})
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", cs.Name, err)
		}
		for _, is := range cs.Items {
			_, err := catalog.UpsertItem(ctx, domain.MenuItem{
				CategoryID:  cat.ID,
				Name:        is.Name,
				Description: is.Description,
				PriceCents:  is.PriceCents,
				IsAvailable: true,
			})
			if err != nil {
				return fmt.Errorf("upsert item %s: %w", is.Name, err)
			}
		}
		logger.Printf("seed: category name=%q items=%d", cs.Name, len(cs.Items))
	}

	if staff.Email == "" {
		return nil
	}
	acc, err := accounts.CreateStaff(ctx, staff)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		logger.Printf("seed: staff account exists email=%s", staff.Email)
	case err != nil:
		return fmt.Errorf("create staff account: %w", err)
	default:
		logger.Printf("seed: staff account created email=%s id=%s", acc.Email, acc.ID)
	}
	return nil
}
