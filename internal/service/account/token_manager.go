package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"coffeeshop/internal/domain"
	tokenrepo "coffeeshop/internal/repository/token"
)

const issueAttempts = 5

type tokenMeta struct {
	AccountID string
	ExpiresAt time.Time
}

type tokenManager struct {
	repo tokenrepo.Repository
	now  func() time.Time
}

func newTokenManager(repo tokenrepo.Repository) *tokenManager {
	return &tokenManager{repo: repo, now: time.Now}
}

func (m *tokenManager) Issue(ctx context.Context, accountID string, kind tokenrepo.Kind, ttl time.Duration) (string, error) {
	expiresAt := m.now().Add(ttl)
	for range issueAttempts {
		token, err := randomToken()
		if err != nil {
			return "", err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Token:     token,
			AccountID: accountID,
			Kind:      kind,
			ExpiresAt: expiresAt,
		})
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return "", err
		}
	}
	return "", errors.New("token collision")
}

// Validate checks that token exists, has the wanted kind and has not expired.
// Expired tokens are deleted on sight.
func (m *tokenManager) Validate(ctx context.Context, token string, kind tokenrepo.Kind) (tokenMeta, bool) {
	if token == "" {
		return tokenMeta{}, false
	}
	t, err := m.repo.Get(ctx, token)
	if err != nil || t.Kind != kind {
		return tokenMeta{}, false
	}
	if m.now().After(t.ExpiresAt) {
		_ = m.repo.Delete(ctx, token)
		return tokenMeta{}, false
	}
	return tokenMeta{AccountID: t.AccountID, ExpiresAt: t.ExpiresAt}, true
}

// Consume validates token and deletes it, so a token can be redeemed once.
func (m *tokenManager) Consume(ctx context.Context, token string, kind tokenrepo.Kind) (tokenMeta, bool) {
	meta, ok := m.Validate(ctx, token, kind)
	if !ok {
		return tokenMeta{}, false
	}
	if err := m.repo.Delete(ctx, token); err != nil {
		return tokenMeta{}, false
	}
	return meta, true
}

func (m *tokenManager) Purge(ctx context.Context, accountID string) (int64, error) {
	return m.repo.PurgeExpired(ctx, accountID, m.now())
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
