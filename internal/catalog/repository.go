package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/platform/db"
	"github.com/supermart/supermart/internal/shared"
)

const productColumns = `p.id, p.sku, p.name, p.description, p.supplier, p.image_url, p.category_id, c.name,
    p.price, p.quantity, p.low_stock_threshold, p.created_at, p.updated_at`

const productFrom = ` FROM products p JOIN categories c ON c.id = p.category_id`

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

type txRepo struct {
	*inventory.TxStore
	tx pgx.Tx
}

// WithTx executes the callback inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.TxOptions{LockTimeout: r.lockTimeout}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{TxStore: inventory.NewTxStore(tx), tx: tx})
	})
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Supplier, &p.ImageURL, &p.CategoryID, &p.CategoryName,
		&p.Price, &p.Quantity, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) getProduct(ctx context.Context, where string, arg any) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, "SELECT "+productColumns+productFrom+" WHERE "+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %v: %w", arg, shared.ErrNotFound)
	}
	return p, err
}

// GetProductBySKU loads a product by SKU.
func (r *Repository) GetProductBySKU(ctx context.Context, sku string) (Product, error) {
	return r.getProduct(ctx, "p.sku = $1", strings.ToUpper(sku))
}

// GetProductByID loads a product by id.
func (r *Repository) GetProductByID(ctx context.Context, id int64) (Product, error) {
	return r.getProduct(ctx, "p.id = $1", id)
}

// ListProducts lists products by name.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.IncludeOutOfStock {
		conds = append(conds, "p.quantity > 0")
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.sku ILIKE $%d)", len(args), len(args)))
	}
	query := "SELECT " + productColumns + productFrom
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY p.name LIMIT $%d", len(args))
	return r.queryProducts(ctx, query, args...)
}

// FindMentioned picks the longest product name occurring in text, case-insensitively.
func (r *Repository) FindMentioned(ctx context.Context, text string) (Product, error) {
	return r.getProduct(ctx, "btrim(p.name) <> '' AND strpos(lower($1), lower(btrim(p.name))) > 0 "+
		"ORDER BY length(btrim(p.name)) DESC, p.id LIMIT 1", text)
}

// LowStock returns products at or below threshold, emptiest first.
func (r *Repository) LowStock(ctx context.Context) ([]Product, error) {
	return r.queryProducts(ctx, "SELECT "+productColumns+productFrom+
		" WHERE p.quantity <= p.low_stock_threshold ORDER BY p.quantity, p.name")
}

// OutOfStock returns products with zero quantity.
func (r *Repository) OutOfStock(ctx context.Context) ([]Product, error) {
	return r.queryProducts(ctx, "SELECT "+productColumns+productFrom+" WHERE p.quantity = 0 ORDER BY p.name")
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query products: %w", err)
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCategories returns categories by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(ctx context.Context, input CreateCategoryInput) (Category, error) {
	c := Category{Name: input.Name, Description: input.Description}
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id, created_at`,
		input.Name, input.Description).Scan(&c.ID, &c.CreatedAt)
	if db.IsUniqueViolation(err) {
		return Category{}, shared.NewValidationError("name", "already exists")
	}
	if err != nil {
		return Category{}, fmt.Errorf("catalog: create category: %w", err)
	}
	return c, nil
}

func (t *txRepo) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertProduct(ctx context.Context, p Product) (Product, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO products
    (sku, name, description, supplier, image_url, category_id, price, quantity, low_stock_threshold)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
RETURNING id, created_at, updated_at`,
		p.SKU, p.Name, p.Description, p.Supplier, p.ImageURL, p.CategoryID, p.Price, p.LowStockThreshold,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return Product{}, shared.NewValidationError("sku", "already exists")
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: insert product: %w", err)
	}
	return p, nil
}

func (t *txRepo) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx, `WITH u AS (
    UPDATE products SET price = $2, updated_at = NOW() WHERE id = $1 RETURNING *
)
SELECT `+productColumns+` FROM u p JOIN categories c ON c.id = p.category_id`, id, price))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	return p, err
}
