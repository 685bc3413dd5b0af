package catalog

import (
	"context"
	"fmt"
	"strings"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/repository/catalog"
	"github.com/google/uuid"
)

type Service struct {
	repo catalog.Repository
}

func New(repo catalog.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) Category(ctx context.Context, id string) (*domain.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetCategory(ctx, id)
}

// Items lists the orderable items of a category. An unknown category is
// reported as domain.ErrNotFound rather than an empty list.
func (s *Service) Items(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	if _, err := s.Category(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.ListAvailableItems(ctx, categoryID)
}

func (s *Service) Item(ctx context.Context, id string) (*domain.MenuItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetItem(ctx, id)
}

// UpsertCategory is used by the seed and import tooling.
func (s *Service) UpsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, fmt.Errorf("%w: category name required", domain.ErrValidation)
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return s.repo.UpsertCategory(ctx, c)
}

// UpsertItem is used by the seed and import tooling.
func (s *Service) UpsertItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil, fmt.Errorf("%w: item name required", domain.ErrValidation)
	}
	if item.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if item.CategoryID == "" {
		return nil, fmt.Errorf("%w: category required", domain.ErrValidation)
	}
	return s.repo.UpsertItem(ctx, item)
}

// SetPrice changes the current price of an item. Carts show it at once;
// placed orders keep the price they were checked out with.
func (s *Service) SetPrice(ctx context.Context, itemID string, priceCents int64) (*domain.MenuItem, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, domain.ErrNotFound
	}
	if priceCents < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if err := s.repo.SetPrice(ctx, itemID, priceCents); err != nil {
		return nil, err
	}
	return s.repo.GetItem(ctx, itemID)
}

// SetAvailability takes an item off the menu or puts it back.
func (s *Service) SetAvailability(ctx context.Context, itemID string, available bool) (*domain.MenuItem, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, domain.ErrNotFound
	}
	if err := s.repo.SetAvailability(ctx, itemID, available); err != nil {
		return nil, err
	}
	return s.repo.GetItem(ctx, itemID)
}

// Slugify lowercases s and joins its words with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
