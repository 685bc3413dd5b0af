package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"

	"coffeeshop/internal/domain"
	cartrepo "coffeeshop/internal/repository/cart"
	"github.com/google/uuid"
)

// Service is the per-customer basket. The repository serializes every
// mutation of one customer behind the cart row lock.
type Service struct {
	repo   cartrepo.Repository
	logger *log.Logger
}

func New(repo cartrepo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, logger: logger}
}

// Get returns the customer's cart. A customer without a cart gets an empty
// one that is not persisted.
func (s *Service) Get(ctx context.Context, customerID string) (*domain.Cart, error) {
	if !validID(customerID) {
		return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, customerID)
	}
	c, err := s.repo.Get(ctx, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Cart{CustomerID: customerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Add puts one more unit of itemID into the cart and returns the new line
// quantity.
func (s *Service) Add(ctx context.Context, customerID, itemID string) (int, error) {
	if err := checkIDs(customerID, itemID); err != nil {
		return 0, err
	}
	return s.repo.AddItem(ctx, customerID, itemID)
}

// SetQuantity sets the line quantity; zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, customerID, itemID string, quantity int) error {
	if err := checkIDs(customerID, itemID); err != nil {
		return err
	}
	if quantity > domain.MaxLineQuantity {
		return fmt.Errorf("%w: quantity %d exceeds %d", domain.ErrValidation, quantity, domain.MaxLineQuantity)
	}
	return s.repo.SetQuantity(ctx, customerID, itemID, quantity)
}

// Decrement takes one unit of itemID out of the cart, removing the line when
// it reaches zero. It returns the remaining quantity.
func (s *Service) Decrement(ctx context.Context, customerID, itemID string) (int, error) {
	if !validID(customerID) || !validID(itemID) {
		return 0, nil
	}
	return s.repo.Decrement(ctx, customerID, itemID)
}

// Remove deletes the line for itemID if there is one.
func (s *Service) Remove(ctx context.Context, customerID, itemID string) error {
	if !validID(customerID) || !validID(itemID) {
		return nil
	}
	return s.repo.RemoveItem(ctx, customerID, itemID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	if !validID(customerID) {
		return nil
	}
	if err := s.repo.Clear(ctx, customerID); err != nil {
		return err
	}
	s.logger.Printf("cart service: cleared customer_id=%s", customerID)
	return nil
}

// Total is the live cart total at current catalog prices.
func (s *Service) Total(ctx context.Context, customerID string) (int64, error) {
	c, err := s.Get(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return c.TotalCents(), nil
}

// Snapshot returns a read-only view of the cart lines. The sequence can be
// ranged over any number of times.
func (s *Service) Snapshot(ctx context.Context, customerID string) (iter.Seq[domain.CartItemView], error) {
	c, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return c.Items(), nil
}

func checkIDs(customerID, itemID string) error {
	if !validID(customerID) {
		return fmt.Errorf("%w: customer %s", domain.ErrNotFound, customerID)
	}
	if !validID(itemID) {
		return fmt.Errorf("%w: item %s", domain.ErrNotFound, itemID)
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
