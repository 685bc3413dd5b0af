package order

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"coffeeshop/internal/domain"
	orderrepo "coffeeshop/internal/repository/order"
	"github.com/google/uuid"
)

const maxListLimit = 200

type Service struct {
	repo   orderrepo.Repository
	logger *log.Logger
}

func New(repo orderrepo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, logger: logger}
}

// Checkout turns the customer's cart into a pending order. The address is
// required for delivery and dropped for pickup.
func (s *Service) Checkout(ctx context.Context, customerID string, fulfillment domain.Fulfillment, address string) (*domain.Order, error) {
	if _, err := uuid.Parse(customerID); err != nil {
		return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, customerID)
	}
	f, err := domain.ParseFulfillment(string(fulfillment))
	if err != nil {
		return nil, err
	}
	in := orderrepo.CheckoutInput{CustomerID: customerID, Fulfillment: f}
	if f == domain.FulfillmentDelivery {
		addr := strings.TrimSpace(address)
		if addr == "" {
			return nil, fmt.Errorf("%w: delivery requires an address", domain.ErrValidation)
		}
		in.Address = &addr
	}

	o, err := s.repo.CreateFromCart(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("order service: placed order_id=%d customer_id=%s fulfillment=%s total_cents=%d", o.ID, customerID, f, o.TotalCents)
	return o, nil
}

// Transition moves an order to status to. Whether actor may do so is decided
// by the caller.
func (s *Service) Transition(ctx context.Context, orderID int64, to domain.OrderStatus, actor string) (*domain.Order, error) {
	to, err := domain.ParseOrderStatus(string(to))
	if err != nil {
		return nil, err
	}
	o, err := s.repo.UpdateStatus(ctx, orderID, to, func(from domain.OrderStatus) error {
		return domain.CanTransition(from, to)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("order service: order_id=%d status=%s actor=%s", orderID, to, actor)
	return o, nil
}

func (s *Service) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

// GetForCustomer returns the order only when it belongs to customerID.
func (s *Service) GetForCustomer(ctx context.Context, customerID string, orderID int64) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	if _, err := uuid.Parse(customerID); err != nil {
		return nil, nil
	}
	return s.repo.ListByCustomer(ctx, customerID, clampLimit(limit))
}

// List returns orders matching filter, newest first.
func (s *Service) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" {
		status, err := domain.ParseOrderStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

func clampLimit(limit int) int {
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
