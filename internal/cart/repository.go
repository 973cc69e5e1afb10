package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supermart/supermart/internal/shared"
)

const itemSelect = `SELECT ci.id, ci.cart_id, ci.product_id, p.sku, p.name, p.price, p.quantity, ci.quantity, ci.added_at
FROM cart_items ci
JOIN carts c ON c.id = ci.cart_id
JOIN products p ON p.id = ci.product_id`

// Repository persists carts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.SKU, &it.Name, &it.UnitPrice, &it.Available, &it.Quantity, &it.AddedAt)
	return it, err
}

// GetCart loads the cart with live product data.
func (r *Repository) GetCart(ctx context.Context, userID int64) (Cart, error) {
	c := Cart{UserID: userID}
	err := r.pool.QueryRow(ctx, `SELECT id, created_at, updated_at FROM carts WHERE user_id = $1`, userID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, fmt.Errorf("cart for user %d: %w", userID, shared.ErrNotFound)
	}
	if err != nil {
		return Cart{}, fmt.Errorf("cart: get: %w", err)
	}
	rows, err := r.pool.Query(ctx, itemSelect+` WHERE ci.cart_id = $1 ORDER BY ci.added_at, ci.id`, c.ID)
	if err != nil {
		return Cart{}, fmt.Errorf("cart: items: %w", err)
	}
	defer rows.Close()
	c.Items = []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return Cart{}, err
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// AddItem upserts the cart and the item in one statement batch.
func (r *Repository) AddItem(ctx context.Context, userID, productID int64) (Item, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return Item{}, fmt.Errorf("cart: product lookup: %w", err)
	}
	if !exists {
		return Item{}, fmt.Errorf("product %d: %w", productID, shared.ErrNotFound)
	}
	var itemID int64
	err := r.pool.QueryRow(ctx, `WITH c AS (
    INSERT INTO carts (user_id) VALUES ($1)
    ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
    RETURNING id
)
INSERT INTO cart_items (cart_id, product_id, quantity)
SELECT c.id, $2, 1 FROM c
ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + 1
RETURNING id`, userID, productID).Scan(&itemID)
	if err != nil {
		return Item{}, fmt.Errorf("cart: add item: %w", err)
	}
	return r.GetItem(ctx, userID, itemID)
}

// GetItem loads an item only if it belongs to the user's cart.
func (r *Repository) GetItem(ctx context.Context, userID, itemID int64) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, itemSelect+` WHERE ci.id = $1 AND c.user_id = $2`, itemID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("cart item %d: %w", itemID, shared.ErrNotFound)
	}
	return it, err
}

// SetItemQuantity overwrites the item's quantity.
func (r *Repository) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := r.pool.Exec(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	return err
}

// DeleteItem removes the item.
func (r *Repository) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	return err
}
