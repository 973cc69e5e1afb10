package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository runs dashboard aggregates against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CustomerOrders returns the user's most recent orders.
func (r *PGRepository) CustomerOrders(ctx context.Context, userID int64, limit int) ([]OrderLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT order_ref, status, payment_status, total_amount, created_at
FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: customer orders: %w", err)
	}
	defer rows.Close()
	var out []OrderLine
	for rows.Next() {
		var o OrderLine
		if err := rows.Scan(&o.OrderID, &o.Status, &o.PaymentStatus, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CartSummary totals the user's cart at live prices.
func (r *PGRepository) CartSummary(ctx context.Context, userID int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(ci.quantity), 0), COALESCE(SUM(ci.quantity * p.price), 0)
FROM carts c
JOIN cart_items ci ON ci.cart_id = c.id
JOIN products p ON p.id = ci.product_id
WHERE c.user_id = $1`, userID).Scan(&c.CartItems, &c.CartTotal)
	if err != nil {
		return Customer{}, fmt.Errorf("dashboard: cart summary: %w", err)
	}
	return c, nil
}

// LowStock lists products at or below their threshold, emptiest first.
func (r *PGRepository) LowStock(ctx context.Context, limit int) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sku, name, quantity, low_stock_threshold
FROM products WHERE quantity <= low_stock_threshold
ORDER BY quantity, sku LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: low stock: %w", err)
	}
	defer rows.Close()
	var out []StockItem
	for rows.Next() {
		var it StockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.Quantity, &it.LowStockThreshold); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Counts computes the store-wide totals in one round trip.
func (r *PGRepository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `SELECT
    (SELECT COUNT(*) FROM products),
    (SELECT COUNT(*) FROM products WHERE quantity <= low_stock_threshold),
    (SELECT COUNT(*) FROM products WHERE quantity = 0),
    (SELECT COUNT(*) FROM orders WHERE status = 'PENDING'),
    (SELECT COUNT(*) FROM orders),
    (SELECT COUNT(*) FROM users),
    (SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE payment_status = 'SUCCESS')`).
		Scan(&c.Products, &c.LowStock, &c.OutOfStock, &c.PendingOrders, &c.Orders, &c.Users, &c.Revenue)
	if err != nil {
		return Counts{}, fmt.Errorf("dashboard: counts: %w", err)
	}
	return c, nil
}
