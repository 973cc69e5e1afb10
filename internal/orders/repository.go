package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/platform/db"
	"github.com/supermart/supermart/internal/shared"
)

const orderColumns = `id, order_ref, user_id, total_amount, shipping_address, phone, payment_status, status, created_at, updated_at`

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

// queryer is satisfied by both the pool and a transaction.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
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

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o              Order
		payment, state string
	)
	err := row.Scan(&o.ID, &o.OrderID, &o.UserID, &o.TotalAmount, &o.ShippingAddress, &o.Phone, &payment, &state, &o.CreatedAt, &o.UpdatedAt)
	o.PaymentStatus = PaymentStatus(payment)
	o.Status = Status(state)
	return o, err
}

func loadItems(ctx context.Context, q queryer, orderPK int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, sku, name, quantity, price
FROM order_items WHERE order_id = $1 ORDER BY id`, orderPK)
	if err != nil {
		return nil, fmt.Errorf("orders: items: %w", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SKU, &it.Name, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func getOrder(ctx context.Context, q queryer, orderID string, lock bool) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_ref = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, strings.ToUpper(orderID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("order %s: %w", orderID, shared.ErrNotFound)
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: get: %w", err)
	}
	o.Items, err = loadItems(ctx, q, o.ID)
	return o, err
}

// GetByOrderID loads an order with its items.
func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (Order, error) {
	return getOrder(ctx, r.pool, orderID, false)
}

// List returns orders newest first, without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Revenue sums totals of orders with a successful payment.
func (r *Repository) Revenue(ctx context.Context) (Revenue, error) {
	var rev Revenue
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
FROM orders WHERE payment_status = 'SUCCESS'`).Scan(&rev.Total, &rev.Orders)
	if err != nil {
		return Revenue{}, fmt.Errorf("orders: revenue: %w", err)
	}
	return rev, nil
}

func (t *txRepo) LoadCart(ctx context.Context, userID int64) (CartSnapshot, error) {
	var snap CartSnapshot
	err := t.tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&snap.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return CartSnapshot{}, fmt.Errorf("cart for user %d: %w", userID, shared.ErrNotFound)
	}
	if err != nil {
		return CartSnapshot{}, fmt.Errorf("orders: load cart: %w", err)
	}
	rows, err := t.tx.Query(ctx, `SELECT product_id, quantity FROM cart_items WHERE cart_id = $1`, snap.ID)
	if err != nil {
		return CartSnapshot{}, fmt.Errorf("orders: load cart items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return CartSnapshot{}, err
		}
		snap.Lines = append(snap.Lines, l)
	}
	return snap, rows.Err()
}

func (t *txRepo) LockProducts(ctx context.Context, ids []int64) (map[int64]LockedProduct, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, sku, name, price, quantity
FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("orders: lock products: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]LockedProduct, len(ids))
	for rows.Next() {
		var p LockedProduct
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Quantity); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (t *txRepo) InsertOrder(ctx context.Context, o Order) (Order, bool, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO orders
    (order_ref, user_id, total_amount, shipping_address, phone, payment_status, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (order_ref) DO NOTHING
RETURNING id, created_at, updated_at`,
		o.OrderID, o.UserID, o.TotalAmount, o.ShippingAddress, o.Phone, string(o.PaymentStatus), string(o.Status),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, fmt.Errorf("orders: insert: %w", err)
	}
	return o, true, nil
}

func (t *txRepo) InsertItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		it.OrderID = orderPK
		err := t.tx.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, sku, name, quantity, price)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			orderPK, it.ProductID, it.SKU, it.Name, it.Quantity, it.Price).Scan(&it.ID)
		if err != nil {
			return nil, fmt.Errorf("orders: insert item: %w", err)
		}
		out = append(out, it)
	}
	return out, nil
}

func (t *txRepo) DeleteCart(ctx context.Context, cartID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	return err
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, orderID string) (Order, error) {
	return getOrder(ctx, t.tx, orderID, true)
}

func (t *txRepo) UpdateStatus(ctx context.Context, orderPK int64, status Status, payment PaymentStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, payment_status = $3, updated_at = NOW() WHERE id = $1`,
		orderPK, string(status), string(payment))
	return err
}
