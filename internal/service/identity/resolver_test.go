package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/repository/customer"
	"golang.org/x/sync/errgroup"
)

// memoryRepo mimics the uniqueness rules of the customers table.
type memoryRepo struct {
	mu        sync.Mutex
	seq       int
	customers map[string]*domain.Customer
	chatNames map[int64]string
	orders    map[string]int

	// createHook runs before Create takes effect; it lets tests inject a
	// concurrent writer.
	createHook func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		customers: make(map[string]*domain.Customer),
		chatNames: make(map[int64]string),
		orders:    make(map[string]int),
	}
}

func (m *memoryRepo) clone(c *domain.Customer) *domain.Customer {
	out := *c
	return &out
}

func (m *memoryRepo) find(match func(*domain.Customer) bool) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if match(c) {
			return m.clone(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	return m.find(func(c *domain.Customer) bool { return c.ID == id })
}

func (m *memoryRepo) FindByChatID(_ context.Context, chatID int64) (*domain.Customer, error) {
	return m.find(func(c *domain.Customer) bool { return c.ChatID != nil && *c.ChatID == chatID })
}

func (m *memoryRepo) FindByAccountID(_ context.Context, accountID string) (*domain.Customer, error) {
	return m.find(func(c *domain.Customer) bool { return c.AccountID != nil && *c.AccountID == accountID })
}

func (m *memoryRepo) FindByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	return m.find(func(c *domain.Customer) bool { return c.Phone != nil && *c.Phone == phone })
}

func (m *memoryRepo) conflicts(skipID string, chatID *int64, accountID, phone *string) bool {
	for _, c := range m.customers {
		if c.ID == skipID {
			continue
		}
		if chatID != nil && c.ChatID != nil && *c.ChatID == *chatID {
			return true
		}
		if accountID != nil && c.AccountID != nil && *c.AccountID == *accountID {
			return true
		}
		if phone != nil && c.Phone != nil && *c.Phone == *phone {
			return true
		}
	}
	return false
}

func (m *memoryRepo) Create(_ context.Context, in customer.NewCustomer) (*domain.Customer, error) {
	if m.createHook != nil {
		hook := m.createHook
		m.createHook = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts("", in.ChatID, in.AccountID, in.Phone) {
		return nil, domain.ErrAlreadyExists
	}
	m.seq++
	c := &domain.Customer{
		ID:        fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq),
		AccountID: in.AccountID,
		ChatID:    in.ChatID,
		Name:      in.Name,
		Phone:     in.Phone,
	}
	if in.ChatID != nil {
		m.chatNames[*in.ChatID] = in.ChatDisplayName
	}
	m.customers[c.ID] = c
	return m.clone(c), nil
}

func (m *memoryRepo) LinkChat(_ context.Context, customerID string, chatID int64, displayName string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok || (c.ChatID != nil && *c.ChatID > 0) {
		return nil, domain.ErrNotFound
	}
	if m.conflicts(customerID, &chatID, nil, nil) {
		return nil, domain.ErrAlreadyExists
	}
	c.ChatID = &chatID
	m.chatNames[chatID] = displayName
	return m.clone(c), nil
}

func (m *memoryRepo) LinkAccount(_ context.Context, customerID, accountID string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok || c.AccountID != nil {
		return nil, domain.ErrNotFound
	}
	if m.conflicts(customerID, nil, &accountID, nil) {
		return nil, domain.ErrAlreadyExists
	}
	c.AccountID = &accountID
	return m.clone(c), nil
}

func (m *memoryRepo) RefreshChatName(_ context.Context, chatID int64, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatNames[chatID] = displayName
	return nil
}

func (m *memoryRepo) SetPhone(_ context.Context, customerID, phone string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.conflicts(customerID, nil, nil, &phone) {
		return nil, domain.ErrAlreadyExists
	}
	c.Phone = &phone
	return m.clone(c), nil
}

func (m *memoryRepo) SetName(_ context.Context, customerID, name string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Name = name
	return m.clone(c), nil
}

func (m *memoryRepo) AbsorbWalkIn(_ context.Context, keepID, walkInID string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep, walkIn := m.customers[keepID], m.customers[walkInID]
	if keep == nil || walkIn == nil {
		return nil, domain.ErrNotFound
	}
	if !walkIn.IsWalkIn() || walkIn.Phone == nil {
		return nil, domain.ErrAlreadyExists
	}
	m.orders[keepID] += m.orders[walkInID]
	delete(m.orders, walkInID)
	delete(m.customers, walkInID)
	keep.Phone = walkIn.Phone
	if keep.Name == "" {
		keep.Name = walkIn.Name
	}
	return m.clone(keep), nil
}

const accountID = "5f0c6a52-1d2e-4f3a-9b8c-7d6e5f4a3b2c"

func TestResolve_BotCreatesOnceAndRefreshesName(t *testing.T) {
	repo := newMemoryRepo()
	r := New(repo, nil)
	ctx := context.Background()

	first, err := r.Resolve(ctx, domain.ChannelBot, "42", domain.ProfileHint{Name: "ann"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve(ctx, domain.ChannelBot, "42", domain.ProfileHint{Name: "Ann K"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same customer, got %s and %s", first.ID, second.ID)
	}
	if repo.chatNames[42] != "Ann K" {
		t.Fatalf("expected refreshed display name, got %q", repo.chatNames[42])
	}
	if len(repo.customers) != 1 {
		t.Fatalf("expected one customer, got %d", len(repo.customers))
	}
}

func TestResolve_RejectsBadPrincipals(t *testing.T) {
	r := New(newMemoryRepo(), nil)
	ctx := context.Background()
	cases := []struct {
		ch        domain.Channel
		principal string
		hint      domain.ProfileHint
	}{
		{domain.ChannelBot, "abc", domain.ProfileHint{}},
		{domain.ChannelBot, "-5", domain.ProfileHint{}},
		{domain.ChannelWeb, "not-a-uuid", domain.ProfileHint{}},
		{domain.ChannelStaff, "call me", domain.ProfileHint{}},
		{domain.ChannelBot, "42", domain.ProfileHint{Phone: "12+34"}},
		{domain.Channel("fax"), "1", domain.ProfileHint{}},
	}
	for _, tc := range cases {
		if _, err := r.Resolve(ctx, tc.ch, tc.principal, tc.hint); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s %q: expected ErrValidation, got %v", tc.ch, tc.principal, err)
		}
	}
}

func TestResolve_StaffWalkInThenBotLinksByPhone(t *testing.T) {
	repo := newMemoryRepo()
	r := New(repo, nil)
	ctx := context.Background()

	walkIn, err := r.Resolve(ctx, domain.ChannelStaff, "+1 555 0100", domain.ProfileHint{Name: "Counter guest"})
	if err != nil {
		t.Fatalf("staff Resolve: %v", err)
	}
	if !walkIn.IsWalkIn() || walkIn.ChatID == nil || *walkIn.ChatID != domain.SyntheticChatID("+15550100") {
		t.Fatalf("unexpected walk-in %+v", walkIn)
	}
	again, err := r.Resolve(ctx, domain.ChannelStaff, "+15550100", domain.ProfileHint{})
	if err != nil || again.ID != walkIn.ID {
		t.Fatalf("expected staff lookup to be idempotent: %v %+v", err, again)
	}

	bot, err := r.Resolve(ctx, domain.ChannelBot, "77", domain.ProfileHint{Name: "guest", Phone: "+15550100"})
	if err != nil {
		t.Fatalf("bot Resolve: %v", err)
	}
	if bot.ID != walkIn.ID || bot.ChatID == nil || *bot.ChatID != 77 {
		t.Fatalf("expected the walk-in to take the real chat id, got %+v", bot)
	}
	if len(repo.customers) != 1 {
		t.Fatalf("expected one customer, got %d", len(repo.customers))
	}
}

func TestResolve_WebLinksWalkInByPhone(t *testing.T) {
	repo := newMemoryRepo()
	r := New(repo, nil)
	ctx := context.Background()

	walkIn, err := r.Resolve(ctx, domain.ChannelStaff, "+15550101", domain.ProfileHint{})
	if err != nil {
		t.Fatalf("staff Resolve: %v", err)
	}
	web, err := r.Resolve(ctx, domain.ChannelWeb, accountID, domain.ProfileHint{Name: "Ann", Phone: "+15550101"})
	if err != nil {
		t.Fatalf("web Resolve: %v", err)
	}
	if web.ID != walkIn.ID || web.AccountID == nil || *web.AccountID != accountID {
		t.Fatalf("unexpected customer %+v", web)
	}
	if web.Name != "Ann" {
		t.Fatalf("expected empty name to be filled, got %q", web.Name)
	}
}

func TestResolve_KnownCustomerAbsorbsWalkIn(t *testing.T) {
	repo := newMemoryRepo()
	r := New(repo, nil)
	ctx := context.Background()

	known, err := r.Resolve(ctx, domain.ChannelBot, "9", domain.ProfileHint{Name: "ann"})
	if err != nil {
		t.Fatalf("bot Resolve: %v", err)
	}
	walkIn, err := r.Resolve(ctx, domain.ChannelStaff, "+15550102", domain.ProfileHint{Name: "Ann at the counter"})
	if err != nil {
		t.Fatalf("staff Resolve: %v", err)
	}
	repo.orders[walkIn.ID] = 2

	shared, err := r.Resolve(ctx, domain.ChannelBot, "9", domain.ProfileHint{Name: "ann", Phone: "+15550102"})
	if err != nil {
		t.Fatalf("contact Resolve: %v", err)
	}
	if shared.ID != known.ID || shared.Phone == nil || *shared.Phone != "+15550102" {
		t.Fatalf("unexpected merged customer %+v", shared)
	}
	if _, ok := repo.customers[walkIn.ID]; ok {
		t.Fatal("walk-in should be absorbed")
	}
	if repo.orders[known.ID] != 2 {
		t.Fatalf("expected orders to move, got %d", repo.orders[known.ID])
	}

	staff, err := r.Resolve(ctx, domain.ChannelStaff, "+15550102", domain.ProfileHint{})
	if err != nil || staff.ID != known.ID {
		t.Fatalf("staff should now find the known customer: %v %+v", err, staff)
	}
}

func TestResolve_PhoneOfAnotherKnownCustomer(t *testing.T) {
	repo := newMemoryRepo()
	r := New(repo, nil)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, domain.ChannelBot, "1", domain.ProfileHint{Phone: "+15550103"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve(ctx, domain.ChannelBot, "2", domain.ProfileHint{Phone: "+15550103"})
	if err != nil {
		t.Fatalf("new chat with a taken phone should still resolve: %v", err)
	}
	if second.Phone != nil {
		t.Fatalf("phone must stay with its owner, got %+v", second)
	}
	if _, err := r.Resolve(ctx, domain.ChannelBot, "2", domain.ProfileHint{Phone: "+15550103"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestResolve_LostCreateRaceRefetches(t *testing.T) {
	repo := newMemoryRepo()
	r := New(repo, nil)
	ctx := context.Background()

	var winner *domain.Customer
	repo.createHook = func() {
		chat := int64(5)
		c, err := repo.Create(ctx, customer.NewCustomer{ChatID: &chat, Name: "winner"})
		if err != nil {
			t.Errorf("concurrent create: %v", err)
		}
		winner = c
	}
	got, err := r.Resolve(ctx, domain.ChannelBot, "5", domain.ProfileHint{Name: "loser"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if winner == nil || got.ID != winner.ID {
		t.Fatalf("expected the concurrently created customer, got %+v", got)
	}
}

func TestResolve_ConcurrentFirstContact(t *testing.T) {
	repo := newMemoryRepo()
	r := New(repo, nil)
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			c, err := r.Resolve(ctx, domain.ChannelBot, strconv.Itoa(100), domain.ProfileHint{})
			if err != nil {
				return err
			}
			ids[i] = c.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("expected one customer, got %v", ids)
		}
	}
}

func TestGet_MalformedID(t *testing.T) {
	if _, err := New(newMemoryRepo(), nil).Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
