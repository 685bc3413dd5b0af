package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"coffeeshop/internal/db"
	"coffeeshop/internal/domain"
	cartrepo "coffeeshop/internal/repository/cart"
	"github.com/jackc/pgx/v5"
)

const defaultListLimit = 50

type postgresRepo struct {
	tx     *db.Runner
	logger *log.Logger

	// afterOrderInsert runs inside the checkout transaction right after the
	// order row is written. Tests use it to inject failures.
	afterOrderInsert func(ctx context.Context, tx pgx.Tx, orderID int64) error
}

func NewPostgres(runner *db.Runner, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{tx: runner, logger: logger}
}

const orderColumns = `id, customer_id::text, fulfillment, address, total_cents, status, created_at, updated_at`

func (r *postgresRepo) CreateFromCart(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	var out *domain.Order
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		cartID, err := cartrepo.LockCart(ctx, tx, in.CustomerID, false)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		cartLines, err := cartrepo.LoadLines(ctx, tx, cartID, true)
		if err != nil {
			return err
		}
		if len(cartLines) == 0 {
			return domain.ErrEmptyCart
		}

		lines := make([]domain.OrderLine, 0, len(cartLines))
		for _, cl := range cartLines {
			if !cl.Item.IsAvailable {
				return fmt.Errorf("%w: item %s is no longer available", domain.ErrNotFound, cl.Item.Name)
			}
			lines = append(lines, domain.OrderLine{
				ItemID:         cl.Item.ID,
				ItemName:       cl.Item.Name,
				Quantity:       cl.Quantity,
				UnitPriceCents: cl.Item.PriceCents,
			})
		}
		total := domain.LinesTotal(lines)

		o, err := scanOrder(tx.QueryRow(ctx, `
INSERT INTO orders (customer_id, fulfillment, address, total_cents, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+orderColumns, in.CustomerID, in.Fulfillment, in.Address, total, domain.StatusPending))
		if err != nil {
			return err
		}
		if r.afterOrderInsert != nil {
			if err := r.afterOrderInsert(ctx, tx, o.ID); err != nil {
				return err
			}
		}

		for i := range lines {
			lines[i].OrderID = o.ID
			if err := tx.QueryRow(ctx, `
INSERT INTO order_lines (order_id, item_id, item_name, quantity, unit_price_cents)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, o.ID, lines[i].ItemID, lines[i].ItemName, lines[i].Quantity, lines[i].UnitPriceCents).Scan(&lines[i].ID); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
			return err
		}
		o.Lines = lines
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: checkout customer_id=%s order_id=%d total_cents=%d lines=%d", in.CustomerID, out.ID, out.TotalCents, len(out.Lines))
	return out, nil
}

func (r *postgresRepo) Get(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(r.tx.Pool().QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.attachLines(ctx, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return r.query(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, customerID, limit)
}

func (r *postgresRepo) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ID > 0 {
		args = append(args, filter.ID)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))
	return r.query(ctx, q, args...)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id int64, to domain.OrderStatus, check func(from domain.OrderStatus) error) (*domain.Order, error) {
	var (
		out  *domain.Order
		from domain.OrderStatus
	)
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&from)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
			}
			return err
		}
		if err := check(from); err != nil {
			return err
		}
		o, err := scanOrder(tx.QueryRow(ctx, `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING `+orderColumns, id, to))
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, []*domain.Order{out}); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: status order_id=%d %s -> %s", id, from, to)
	return out, nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.tx.Pool().Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, *o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*domain.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := r.attachLines(ctx, ptrs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) attachLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	rows, err := r.tx.Pool().Query(ctx, `
SELECT id, order_id, item_id::text, item_name, quantity, unit_price_cents
FROM order_lines
WHERE order_id = ANY($1)
ORDER BY order_id, id
`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.ItemName, &l.Quantity, &l.UnitPriceCents); err != nil {
			return err
		}
		if o := byID[l.OrderID]; o != nil {
			o.Lines = append(o.Lines, l)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.Fulfillment,
		&o.Address,
		&o.TotalCents,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}
