package token

import (
	"context"
	"time"
)

// Kind separates short-lived access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Token is an opaque bearer credential bound to an account.
type Token struct {
	Token     string
	AccountID string
	Kind      Kind
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
	// PurgeExpired removes the account's tokens that expired before now and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, accountID string, now time.Time) (int64, error)
}
