package catalog

import (
	"context"
	"errors"
	"io"
	"log"

	"coffeeshop/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const (
	categoryColumns = `id::text, name, slug, emoji, sort_order, created_at`
	itemColumns     = `id::text, category_id::text, name, description, price_cents, is_available, image_url, created_at`
)

func (r *postgresRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT ` + categoryColumns + `
FROM categories
ORDER BY sort_order ASC, name ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("catalog repo: list categories error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Emoji, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	const q = `
SELECT ` + categoryColumns + `
FROM categories
WHERE id = $1
`
	var c domain.Category
	err := r.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Name, &c.Slug, &c.Emoji, &c.SortOrder, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) ListAvailableItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	const q = `
SELECT ` + itemColumns + `
FROM menu_items
WHERE category_id = $1 AND is_available
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, q, categoryID)
	if err != nil {
		r.logger.Printf("catalog repo: list items category_id=%s error=%v", categoryID, err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.MenuItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Printf("catalog repo: list items category_id=%s count=%d", categoryID, len(result))
	return result, nil
}

func (r *postgresRepo) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	const q = `
SELECT ` + itemColumns + `
FROM menu_items
WHERE id = $1
`
	item, err := scanItem(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("catalog repo: get item id=%s error=%v", id, err)
		return nil, err
	}
	return item, nil
}

func (r *postgresRepo) UpsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (name, slug, emoji, sort_order)
VALUES ($1, $2, $3, $4)
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name,
    emoji = COALESCE(NULLIF(EXCLUDED.emoji, ''), categories.emoji),
    sort_order = EXCLUDED.sort_order
RETURNING ` + categoryColumns
	var out domain.Category
	err := r.pool.QueryRow(ctx, q, c.Name, c.Slug, c.Emoji, c.SortOrder).
		Scan(&out.ID, &out.Name, &out.Slug, &out.Emoji, &out.SortOrder, &out.CreatedAt)
	if err != nil {
		r.logger.Printf("catalog repo: upsert category slug=%s error=%v", c.Slug, err)
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) UpsertItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	const q = `
INSERT INTO menu_items (category_id, name, description, price_cents, is_available, image_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (category_id, name) DO UPDATE
SET description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    is_available = EXCLUDED.is_available,
    image_url = EXCLUDED.image_url
RETURNING ` + itemColumns
	out, err := scanItem(r.pool.QueryRow(ctx, q,
		item.CategoryID,
		item.Name,
		item.Description,
		item.PriceCents,
		item.IsAvailable,
		item.ImageURL,
	))
	if err != nil {
		r.logger.Printf("catalog repo: upsert item name=%s category_id=%s error=%v", item.Name, item.CategoryID, err)
		return nil, err
	}
	r.logger.Printf("catalog repo: upserted item name=%s id=%s", out.Name, out.ID)
	return out, nil
}

func (r *postgresRepo) SetPrice(ctx context.Context, id string, priceCents int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE menu_items SET price_cents = $1 WHERE id = $2`, priceCents, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE menu_items SET is_available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := row.Scan(
		&item.ID,
		&item.CategoryID,
		&item.Name,
		&item.Description,
		&item.PriceCents,
		&item.IsAvailable,
		&item.ImageURL,
		&item.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
