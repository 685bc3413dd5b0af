package cart

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

func NewPostgres(runner *db.Runner, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{tx: runner, logger: logger}
}

func (r *postgresRepo) Get(ctx context.Context, customerID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.tx.Pool().QueryRow(ctx, `
SELECT id::text, customer_id::text, created_at
FROM carts
WHERE customer_id = $1
`, customerID).Scan(&cart.ID, &cart.CustomerID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	lines, err := LoadLines(ctx, r.tx.Pool(), cart.ID, false)
	if err != nil {
		return nil, err
	}
	cart.Lines = lines
	return &cart, nil
}

func (r *postgresRepo) AddItem(ctx context.Context, customerID, itemID string) (int, error) {
	var qty int
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		cartID, err := LockCart(ctx, tx, customerID, true)
		if err != nil {
			return err
		}
		if err := requireItem(ctx, tx, itemID, true); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
INSERT INTO cart_lines (cart_id, item_id, quantity)
VALUES ($1, $2, 1)
ON CONFLICT (cart_id, item_id) DO UPDATE
SET quantity = cart_lines.quantity + 1
RETURNING quantity
`, cartID, itemID).Scan(&qty)
	})
	if err != nil {
		return 0, err
	}
	r.logger.Printf("cart repo: add customer_id=%s item_id=%s quantity=%d", customerID, itemID, qty)
	return qty, nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, customerID, itemID string, quantity int) error {
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		if quantity <= 0 {
			cartID, err := LockCart(ctx, tx, customerID, false)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err := requireItem(ctx, tx, itemID, false); err != nil {
				return err
			}
			if cartID == "" {
				return nil
			}
			_, err = tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
			return err
		}

		cartID, err := LockCart(ctx, tx, customerID, true)
		if err != nil {
			return err
		}
		if err := requireItem(ctx, tx, itemID, true); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, item_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, item_id) DO UPDATE
SET quantity = EXCLUDED.quantity
`, cartID, itemID, quantity)
		return err
	})
	if err != nil {
		return err
	}
	r.logger.Printf("cart repo: set customer_id=%s item_id=%s quantity=%d", customerID, itemID, quantity)
	return nil
}

func (r *postgresRepo) Decrement(ctx context.Context, customerID, itemID string) (int, error) {
	var remaining int
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		cartID, err := LockCart(ctx, tx, customerID, false)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
UPDATE cart_lines
SET quantity = quantity - 1
WHERE cart_id = $1 AND item_id = $2 AND quantity > 1
RETURNING quantity
`, cartID, itemID).Scan(&remaining)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		remaining = 0
		_, err = tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
		return err
	})
	if err != nil {
		return 0, err
	}
	r.logger.Printf("cart repo: decrement customer_id=%s item_id=%s quantity=%d", customerID, itemID, remaining)
	return remaining, nil
}

func (r *postgresRepo) RemoveItem(ctx context.Context, customerID, itemID string) error {
	return r.tx.InTx(ctx, func(tx pgx.Tx) error {
		cartID, err := LockCart(ctx, tx, customerID, false)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
		return err
	})
}

func (r *postgresRepo) Clear(ctx context.Context, customerID string) error {
	return r.tx.InTx(ctx, func(tx pgx.Tx) error {
		cartID, err := LockCart(ctx, tx, customerID, false)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID)
		return err
	})
}

// LockCart takes the row lock on the customer's cart, creating the cart when
// create is set. Holding this lock serializes all cart work of one customer.
func LockCart(ctx context.Context, tx pgx.Tx, customerID string, create bool) (string, error) {
	if create {
		_, err := tx.Exec(ctx, `
INSERT INTO carts (customer_id)
VALUES ($1)
ON CONFLICT (customer_id) DO NOTHING
`, customerID)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return "", fmt.Errorf("%w: customer %s", domain.ErrNotFound, customerID)
			}
			return "", err
		}
	}
	var cartID string
	err := tx.QueryRow(ctx, `
SELECT id::text
FROM carts
WHERE customer_id = $1
FOR UPDATE
`, customerID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return cartID, nil
}

// LoadLines reads the cart lines joined to their current catalog rows. With
// lockItems the item rows are share-locked so prices cannot change until the
// transaction ends.
func LoadLines(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, cartID string, lockItems bool) ([]domain.CartLine, error) {
	sql := `
SELECT l.cart_id::text, l.quantity, l.created_at,
       i.id::text, i.category_id::text, i.name, i.description, i.price_cents, i.is_available, i.image_url, i.created_at
FROM cart_lines l
JOIN menu_items i ON i.id = l.item_id
WHERE l.cart_id = $1
ORDER BY l.created_at ASC, i.name ASC
`
	if lockItems {
		sql += "FOR SHARE OF i\n"
	}
	rows, err := q.Query(ctx, sql, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.CartID,
			&line.Quantity,
			&line.CreatedAt,
			&line.Item.ID,
			&line.Item.CategoryID,
			&line.Item.Name,
			&line.Item.Description,
			&line.Item.PriceCents,
			&line.Item.IsAvailable,
			&line.Item.ImageURL,
			&line.Item.CreatedAt,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func requireItem(ctx context.Context, tx pgx.Tx, itemID string, mustBeAvailable bool) error {
	var available bool
	err := tx.QueryRow(ctx, `
SELECT is_available
FROM menu_items
WHERE id = $1
FOR SHARE
`, itemID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: item %s", domain.ErrNotFound, itemID)
		}
		return err
	}
	if mustBeAvailable && !available {
		return fmt.Errorf("%w: item %s is unavailable", domain.ErrNotFound, itemID)
	}
	return nil
}
