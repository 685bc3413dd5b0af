package customer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"coffeeshop/internal/db"
	"coffeeshop/internal/domain"
	"github.com/jackc/pgx/v5"
)

type postgresRepo struct {
	tx     *db.Runner
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(runner *db.Runner, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{tx: runner, logger: logger}
}

const customerColumns = `id::text, account_id::text, chat_id, name, phone, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *postgresRepo) FindByChatID(ctx context.Context, chatID int64) (*domain.Customer, error) {
	return r.findOne(ctx, `WHERE chat_id = $1`, chatID)
}

func (r *postgresRepo) FindByAccountID(ctx context.Context, accountID string) (*domain.Customer, error) {
	return r.findOne(ctx, `WHERE account_id = $1`, accountID)
}

func (r *postgresRepo) FindByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return r.findOne(ctx, `WHERE phone = $1`, phone)
}

func (r *postgresRepo) findOne(ctx context.Context, where string, arg any) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers ` + where + ` LIMIT 1`
	c, err := scanCustomer(r.tx.Pool().QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("customer repo: find %s error=%v", where, err)
		return nil, err
	}
	return c, nil
}

func (r *postgresRepo) Create(ctx context.Context, in NewCustomer) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		if in.ChatID != nil {
			if err := ensureChatIdentity(ctx, tx, *in.ChatID, in.ChatDisplayName); err != nil {
				return err
			}
		}
		const q = `
INSERT INTO customers (account_id, chat_id, name, phone)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING
RETURNING ` + customerColumns
		c, err := scanCustomer(tx.QueryRow(ctx, q, in.AccountID, in.ChatID, in.Name, in.Phone))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAlreadyExists
			}
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			r.logger.Printf("customer repo: create error=%v", err)
		}
		return nil, err
	}
	r.logger.Printf("customer repo: created id=%s", out.ID)
	return out, nil
}

func (r *postgresRepo) LinkChat(ctx context.Context, customerID string, chatID int64, displayName string) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		var previous *int64
		if err := tx.QueryRow(ctx, `SELECT chat_id FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&previous); err != nil {
			return mapWriteErr(err)
		}
		if err := ensureChatIdentity(ctx, tx, chatID, displayName); err != nil {
			return err
		}
		const q = `
UPDATE customers
SET chat_id = $2
WHERE id = $1 AND (chat_id IS NULL OR chat_id < 0)
RETURNING ` + customerColumns
		c, err := scanCustomer(tx.QueryRow(ctx, q, customerID, chatID))
		if err != nil {
			return mapWriteErr(err)
		}
		// The synthetic identity belonged to this walk-in only.
		if previous != nil && *previous < 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM chat_identities WHERE chat_id = $1`, *previous); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Printf("customer repo: linked chat_id=%d id=%s", chatID, customerID)
	return out, nil
}

func (r *postgresRepo) LinkAccount(ctx context.Context, customerID, accountID string) (*domain.Customer, error) {
	const q = `
UPDATE customers
SET account_id = $2
WHERE id = $1 AND account_id IS NULL
RETURNING ` + customerColumns
	c, err := scanCustomer(r.tx.Pool().QueryRow(ctx, q, customerID, accountID))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	r.logger.Printf("customer repo: linked account_id=%s id=%s", accountID, customerID)
	return c, nil
}

func (r *postgresRepo) RefreshChatName(ctx context.Context, chatID int64, displayName string) error {
	_, err := r.tx.Pool().Exec(ctx, `
UPDATE chat_identities
SET display_name = $2
WHERE chat_id = $1 AND display_name <> $2
`, chatID, displayName)
	return err
}

func (r *postgresRepo) SetPhone(ctx context.Context, customerID, phone string) (*domain.Customer, error) {
	const q = `
UPDATE customers
SET phone = $2
WHERE id = $1
RETURNING ` + customerColumns
	c, err := scanCustomer(r.tx.Pool().QueryRow(ctx, q, customerID, phone))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return c, nil
}

func (r *postgresRepo) SetName(ctx context.Context, customerID, name string) (*domain.Customer, error) {
	const q = `
UPDATE customers
SET name = $2
WHERE id = $1
RETURNING ` + customerColumns
	c, err := scanCustomer(r.tx.Pool().QueryRow(ctx, q, customerID, name))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return c, nil
}

func (r *postgresRepo) AbsorbWalkIn(ctx context.Context, keepID, walkInID string) (*domain.Customer, error) {
	if keepID == walkInID {
		return nil, fmt.Errorf("%w: cannot merge a customer into itself", domain.ErrValidation)
	}
	var out *domain.Customer
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		// Lock both rows in a stable order so concurrent merges cannot deadlock.
		rows, err := tx.Query(ctx, `
SELECT `+customerColumns+`
FROM customers
WHERE id = ANY($1::uuid[])
ORDER BY id
FOR UPDATE
`, []string{keepID, walkInID})
		if err != nil {
			return err
		}
		locked := make(map[string]*domain.Customer, 2)
		for rows.Next() {
			c, err := scanCustomer(rows)
			if err != nil {
				rows.Close()
				return err
			}
			locked[c.ID] = c
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		walkIn, keep := locked[walkInID], locked[keepID]
		if walkIn == nil || keep == nil {
			return domain.ErrNotFound
		}
		if !walkIn.IsWalkIn() || walkIn.Phone == nil {
			return fmt.Errorf("%w: customer %s is not a walk-in", domain.ErrAlreadyExists, walkInID)
		}

		if _, err := tx.Exec(ctx, `UPDATE orders SET customer_id = $1 WHERE customer_id = $2`, keepID, walkInID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM customers WHERE id = $1`, walkInID); err != nil {
			return err
		}
		if walkIn.ChatID != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM chat_identities WHERE chat_id = $1`, *walkIn.ChatID); err != nil {
				return err
			}
		}
		c, err := scanCustomer(tx.QueryRow(ctx, `
UPDATE customers
SET phone = $2,
    name = CASE WHEN name = '' THEN $3 ELSE name END
WHERE id = $1
RETURNING `+customerColumns, keepID, *walkIn.Phone, walkIn.Name))
		if err != nil {
			return mapWriteErr(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Printf("customer repo: absorbed walk-in id=%s into id=%s", walkInID, keepID)
	return out, nil
}

func ensureChatIdentity(ctx context.Context, tx pgx.Tx, chatID int64, displayName string) error {
	_, err := tx.Exec(ctx, `
INSERT INTO chat_identities (chat_id, display_name)
VALUES ($1, $2)
ON CONFLICT (chat_id) DO NOTHING
`, chatID, displayName)
	return err
}

func mapWriteErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	case db.IsUniqueViolation(err, ""):
		return domain.ErrAlreadyExists
	default:
		return err
	}
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.AccountID, &c.ChatID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
