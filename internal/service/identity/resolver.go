// Package identity maps channel principals (chat ids, web accounts and
// staff-entered phone numbers) to one canonical customer.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/repository/customer"
	"github.com/google/uuid"
)

// maxAttempts bounds the find-or-create loop. A lost create race is retried
// as a lookup.
const maxAttempts = 3

type Resolver struct {
	repo   customer.Repository
	logger *log.Logger
}

func New(repo customer.Repository, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{repo: repo, logger: logger}
}

// Get returns a customer by id.
func (r *Resolver) Get(ctx context.Context, customerID string) (*domain.Customer, error) {
	if _, err := uuid.Parse(customerID); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.repo.GetByID(ctx, customerID)
}

// Resolve finds or creates the customer behind principal. For the bot channel
// principal is a positive chat id, for web an account id and for staff a
// phone number.
func (r *Resolver) Resolve(ctx context.Context, ch domain.Channel, principal string, hint domain.ProfileHint) (*domain.Customer, error) {
	hint.Name = strings.TrimSpace(hint.Name)
	var phone string
	if strings.TrimSpace(hint.Phone) != "" {
		p, err := domain.ValidatePhone(hint.Phone)
		if err != nil {
			return nil, err
		}
		phone = p
	}

	switch ch {
	case domain.ChannelBot:
		chatID, err := strconv.ParseInt(strings.TrimSpace(principal), 10, 64)
		if err != nil || chatID <= 0 {
			return nil, fmt.Errorf("%w: chat id must be a positive integer", domain.ErrValidation)
		}
		return r.resolve(ctx, botIdentity{repo: r.repo, chatID: chatID, name: hint.Name}, hint.Name, phone)
	case domain.ChannelWeb:
		if _, err := uuid.Parse(principal); err != nil {
			return nil, fmt.Errorf("%w: account id must be a uuid", domain.ErrValidation)
		}
		return r.resolve(ctx, webIdentity{repo: r.repo, accountID: principal}, hint.Name, phone)
	case domain.ChannelStaff:
		p, err := domain.ValidatePhone(principal)
		if err != nil {
			return nil, err
		}
		return r.resolveWalkIn(ctx, p, hint.Name)
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", domain.ErrValidation, ch)
	}
}

// identityRef abstracts the principal-specific lookups of the bot and web
// channels.
type identityRef interface {
	find(ctx context.Context) (*domain.Customer, error)
	// linkable reports whether c can take this identity.
	linkable(c *domain.Customer) bool
	link(ctx context.Context, customerID string) (*domain.Customer, error)
	create(ctx context.Context, name string, phone *string) (*domain.Customer, error)
	touch(ctx context.Context) error
	String() string
}

func (r *Resolver) resolve(ctx context.Context, ref identityRef, name, phone string) (*domain.Customer, error) {
	for range maxAttempts {
		c, err := ref.find(ctx)
		if err == nil {
			if err := ref.touch(ctx); err != nil {
				r.logger.Printf("identity: refresh %s error=%v", ref, err)
			}
			return r.completeProfile(ctx, c, name, phone)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		var createPhone *string
		if phone != "" {
			owner, err := r.repo.FindByPhone(ctx, phone)
			switch {
			case err == nil && ref.linkable(owner):
				linked, err := ref.link(ctx, owner.ID)
				if err == nil {
					r.logger.Printf("identity: linked %s to customer_id=%s by phone", ref, linked.ID)
					return r.completeProfile(ctx, linked, name, "")
				}
				if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
					continue
				}
				return nil, err
			case err == nil:
				// The phone belongs to another fully identified customer; the
				// new customer is created without it.
			case errors.Is(err, domain.ErrNotFound):
				createPhone = &phone
			default:
				return nil, err
			}
		}

		created, err := ref.create(ctx, name, createPhone)
		if err == nil {
			r.logger.Printf("identity: created customer_id=%s for %s", created.ID, ref)
			return created, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: could not resolve %s", domain.ErrConcurrencyConflict, ref)
}

// completeProfile fills in the name and phone of an existing customer when
// they are still empty. A phone held by a walk-in customer pulls that walk-in
// into c.
func (r *Resolver) completeProfile(ctx context.Context, c *domain.Customer, name, phone string) (*domain.Customer, error) {
	if c.Name == "" && name != "" {
		updated, err := r.repo.SetName(ctx, c.ID, name)
		if err != nil {
			return nil, err
		}
		c = updated
	}
	if phone == "" || c.Phone != nil {
		return c, nil
	}

	updated, err := r.repo.SetPhone(ctx, c.ID, phone)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, err
	}
	owner, err := r.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if owner.ID == c.ID {
		return owner, nil
	}
	if !owner.IsWalkIn() {
		return nil, fmt.Errorf("%w: phone %s belongs to another customer", domain.ErrAlreadyExists, phone)
	}
	merged, err := r.repo.AbsorbWalkIn(ctx, c.ID, owner.ID)
	if err != nil {
		return nil, err
	}
	r.logger.Printf("identity: absorbed walk-in customer_id=%s into customer_id=%s", owner.ID, c.ID)
	return merged, nil
}

func (r *Resolver) resolveWalkIn(ctx context.Context, phone, name string) (*domain.Customer, error) {
	synthetic := domain.SyntheticChatID(phone)
	for range maxAttempts {
		c, err := r.repo.FindByPhone(ctx, phone)
		if err == nil {
			return r.completeProfile(ctx, c, name, "")
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		c, err = r.repo.FindByChatID(ctx, synthetic)
		if err == nil {
			return r.completeProfile(ctx, c, name, phone)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		display := name
		if display == "" {
			display = phone
		}
		created, err := r.repo.Create(ctx, customer.NewCustomer{
			ChatID:          &synthetic,
			ChatDisplayName: display,
			Name:            name,
			Phone:           &phone,
		})
		if err == nil {
			r.logger.Printf("identity: created walk-in customer_id=%s", created.ID)
			return created, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: could not resolve walk-in %s", domain.ErrConcurrencyConflict, phone)
}

type botIdentity struct {
	repo   customer.Repository
	chatID int64
	name   string
}

func (b botIdentity) find(ctx context.Context) (*domain.Customer, error) {
	return b.repo.FindByChatID(ctx, b.chatID)
}

func (b botIdentity) linkable(c *domain.Customer) bool {
	return c.ChatID == nil || *c.ChatID < 0
}

func (b botIdentity) link(ctx context.Context, customerID string) (*domain.Customer, error) {
	return b.repo.LinkChat(ctx, customerID, b.chatID, b.name)
}

func (b botIdentity) create(ctx context.Context, name string, phone *string) (*domain.Customer, error) {
	chatID := b.chatID
	return b.repo.Create(ctx, customer.NewCustomer{ChatID: &chatID, ChatDisplayName: b.name, Name: name, Phone: phone})
}

func (b botIdentity) touch(ctx context.Context) error {
	if b.name == "" {
		return nil
	}
	return b.repo.RefreshChatName(ctx, b.chatID, b.name)
}

func (b botIdentity) String() string {
	return "chat_id=" + strconv.FormatInt(b.chatID, 10)
}

type webIdentity struct {
	repo      customer.Repository
	accountID string
}

func (w webIdentity) find(ctx context.Context) (*domain.Customer, error) {
	return w.repo.FindByAccountID(ctx, w.accountID)
}

func (w webIdentity) linkable(c *domain.Customer) bool {
	return c.AccountID == nil
}

func (w webIdentity) link(ctx context.Context, customerID string) (*domain.Customer, error) {
	return w.repo.LinkAccount(ctx, customerID, w.accountID)
}

func (w webIdentity) create(ctx context.Context, name string, phone *string) (*domain.Customer, error) {
	accountID := w.accountID
	return w.repo.Create(ctx, customer.NewCustomer{AccountID: &accountID, Name: name, Phone: phone})
}

func (w webIdentity) touch(context.Context) error { return nil }

func (w webIdentity) String() string {
	return "account_id=" + w.accountID
}
