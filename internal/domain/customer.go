package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Channel names the entry point a principal comes from.
type Channel string

const (
	ChannelBot   Channel = "bot"
	ChannelWeb   Channel = "web"
	ChannelStaff Channel = "staff"
)

// Account is a web storefront login. Staff accounts may use the staff panel.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	IsStaff      bool      `json:"isStaff"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayName returns the best human-readable name for the account.
func (a Account) DisplayName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Email
	}
	return name
}

// ChatIdentity is a chat-bot principal. Negative chat ids are synthetic
// identities assigned to walk-in customers.
type ChatIdentity struct {
	ChatID      int64     `json:"chatId"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Customer is the canonical person record every channel resolves to.
type Customer struct {
	ID        string    `json:"id"`
	AccountID *string   `json:"accountId,omitempty"`
	ChatID    *int64    `json:"chatId,omitempty"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsWalkIn reports whether the customer is only known through a staff-entered
// phone number.
func (c Customer) IsWalkIn() bool {
	return c.AccountID == nil && (c.ChatID == nil || *c.ChatID < 0)
}

// ProfileHint carries optional first-contact profile data.
type ProfileHint struct {
	Name  string
	Phone string
}

// ValidatePhone checks that phone is a plausible phone string and returns it
// with spaces removed.
func ValidatePhone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", fmt.Errorf("%w: phone required", ErrValidation)
	}
	var b strings.Builder
	digits := 0
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == '+':
			if i != 0 {
				return "", fmt.Errorf("%w: phone %q has a misplaced '+'", ErrValidation, phone)
			}
			b.WriteRune(r)
		case r == ' ':
		default:
			return "", fmt.Errorf("%w: phone %q contains %q", ErrValidation, phone, r)
		}
	}
	if digits == 0 {
		return "", fmt.Errorf("%w: phone %q has no digits", ErrValidation, phone)
	}
	return b.String(), nil
}

// SyntheticChatID derives the placeholder chat id of a walk-in customer from
// a normalized phone number. The result is always in [-2^63, -1], so it never
// overlaps the positive chat ids issued by the messenger.
func SyntheticChatID(normalizedPhone string) int64 {
	h := xxhash.Sum64String(normalizedPhone) &^ (1 << 63)
	return -int64(h) - 1
}
