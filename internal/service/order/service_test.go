package order

import (
	"context"
	"errors"
	"testing"

	"coffeeshop/internal/domain"
	orderrepo "coffeeshop/internal/repository/order"
)

type stubRepo struct {
	lastCheckout *orderrepo.CheckoutInput
	checkoutErr  error
	orders       map[int64]*domain.Order
	lastFilter   domain.OrderFilter
	lastLimit    int
}

func newStubRepo() *stubRepo {
	return &stubRepo{orders: make(map[int64]*domain.Order)}
}

func (s *stubRepo) CreateFromCart(_ context.Context, in orderrepo.CheckoutInput) (*domain.Order, error) {
	s.lastCheckout = &in
	if s.checkoutErr != nil {
		return nil, s.checkoutErr
	}
	o := &domain.Order{
		ID:          int64(len(s.orders) + 1),
		CustomerID:  in.CustomerID,
		Fulfillment: in.Fulfillment,
		Address:     in.Address,
		Status:      domain.StatusPending,
		TotalCents:  200,
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *stubRepo) Get(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (s *stubRepo) ListByCustomer(_ context.Context, customerID string, limit int) ([]domain.Order, error) {
	s.lastLimit = limit
	var out []domain.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubRepo) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	s.lastFilter = filter
	return nil, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, id int64, to domain.OrderStatus, check func(domain.OrderStatus) error) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := check(o.Status); err != nil {
		return nil, err
	}
	o.Status = to
	clone := *o
	return &clone, nil
}

const customerID = "2b1a7c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"

func TestCheckout_DeliveryRequiresAddress(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, nil)
	if _, err := svc.Checkout(context.Background(), customerID, domain.FulfillmentDelivery, "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if repo.lastCheckout != nil {
		t.Fatal("repository must not be called on invalid input")
	}

	o, err := svc.Checkout(context.Background(), customerID, "Delivery", " Main st 1 ")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if o.Fulfillment != domain.FulfillmentDelivery || o.Address == nil || *o.Address != "Main st 1" {
		t.Fatalf("unexpected order %+v", o)
	}
}

func TestCheckout_PickupDropsAddress(t *testing.T) {
	repo := newStubRepo()
	o, err := New(repo, nil).Checkout(context.Background(), customerID, domain.FulfillmentPickup, "ignored")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if o.Address != nil || repo.lastCheckout.Address != nil {
		t.Fatalf("pickup must not store an address, got %+v", o)
	}
}

func TestCheckout_UnknownFulfillment(t *testing.T) {
	if _, err := New(newStubRepo(), nil).Checkout(context.Background(), customerID, "drone", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCheckout_PropagatesEmptyCart(t *testing.T) {
	repo := newStubRepo()
	repo.checkoutErr = domain.ErrEmptyCart
	if _, err := New(repo, nil).Checkout(context.Background(), customerID, domain.FulfillmentPickup, ""); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestTransition_FollowsStateMachine(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, nil)
	ctx := context.Background()
	o, err := svc.Checkout(ctx, customerID, domain.FulfillmentPickup, "")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if _, err := svc.Transition(ctx, o.ID, domain.StatusCompleted, "staff"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending -> completed must fail, got %v", err)
	}
	got, err := svc.Transition(ctx, o.ID, "CONFIRMED", "staff")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != domain.StatusConfirmed || got.TotalCents != 200 {
		t.Fatalf("unexpected order %+v", got)
	}
	if _, err := svc.Transition(ctx, o.ID, domain.StatusCanceled, "staff"); err != nil {
		t.Fatalf("confirmed -> canceled: %v", err)
	}
	if _, err := svc.Transition(ctx, o.ID, domain.StatusConfirmed, "staff"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("canceled -> confirmed must fail, got %v", err)
	}
	if _, err := svc.Transition(ctx, o.ID, "shipped", "staff"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown status must fail validation, got %v", err)
	}
	if _, err := svc.Transition(ctx, 404, domain.StatusConfirmed, "staff"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetForCustomer_HidesOtherCustomersOrders(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, nil)
	ctx := context.Background()
	o, err := svc.Checkout(ctx, customerID, domain.FulfillmentPickup, "")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if _, err := svc.GetForCustomer(ctx, "someone-else", o.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetForCustomer(ctx, customerID, o.ID); err != nil {
		t.Fatalf("GetForCustomer: %v", err)
	}
}

func TestList_NormalizesFilter(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, nil)
	if _, err := svc.List(context.Background(), domain.OrderFilter{Status: "Pending", Limit: 10_000}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.lastFilter.Status != domain.StatusPending || repo.lastFilter.Limit != maxListLimit {
		t.Fatalf("unexpected filter %+v", repo.lastFilter)
	}
	if _, err := svc.List(context.Background(), domain.OrderFilter{Status: "lost"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
