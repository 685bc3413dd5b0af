package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeeshop/internal/db"
	"coffeeshop/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, t Token) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO tokens (token, account_id, kind, expires_at)
VALUES ($1, $2, $3, $4)
`, t.Token, t.AccountID, t.Kind, t.ExpiresAt)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, ""):
		return domain.ErrAlreadyExists
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, t.AccountID)
	default:
		return err
	}
}

func (r *postgresRepo) Get(ctx context.Context, token string) (*Token, error) {
	var t Token
	err := r.pool.QueryRow(ctx, `
SELECT token, account_id::text, kind, expires_at, created_at
FROM tokens
WHERE token = $1
`, token).Scan(&t.Token, &t.AccountID, &t.Kind, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresRepo) Delete(ctx context.Context, token string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tokens WHERE token = $1`, token)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) PurgeExpired(ctx context.Context, accountID string, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tokens WHERE account_id = $1 AND expires_at < $2`, accountID, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
