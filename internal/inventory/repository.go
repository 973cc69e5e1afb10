package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supermart/supermart/internal/platform/db"
	"github.com/supermart/supermart/internal/shared"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

// TxStore implements TxRepository on a pgx transaction. Other packages embed it
// to apply movements inside their own transactions.
type TxStore struct {
	tx pgx.Tx
}

// NewTxStore wraps an open transaction.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

// WithTx executes the callback inside a ReadCommitted transaction with lock timeout.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.TxOptions{LockTimeout: r.lockTimeout}, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

// GetProductForUpdate locks the product row.
func (s *TxStore) GetProductForUpdate(ctx context.Context, productID int64) (StockProduct, error) {
	var p StockProduct
	err := s.tx.QueryRow(ctx, `SELECT id, sku, name, quantity, low_stock_threshold
FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&p.ID, &p.SKU, &p.Name, &p.Quantity, &p.LowStockThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockProduct{}, fmt.Errorf("product %d: %w", productID, shared.ErrNotFound)
	}
	if err != nil {
		return StockProduct{}, fmt.Errorf("inventory: lock product: %w", err)
	}
	return p, nil
}

// AddProductQuantity applies delta guarded by the non-negative floor.
func (s *TxStore) AddProductQuantity(ctx context.Context, productID int64, delta int) (int, error) {
	var quantity int
	err := s.tx.QueryRow(ctx, `UPDATE products SET quantity = quantity + $2, updated_at = NOW()
WHERE id = $1 AND quantity + $2 >= 0
RETURNING quantity`, productID, delta).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: product %d", shared.ErrInsufficientStock, productID)
	}
	if err != nil {
		return 0, fmt.Errorf("inventory: update quantity: %w", err)
	}
	return quantity, nil
}

// InsertEntry appends a ledger row.
func (s *TxStore) InsertEntry(ctx context.Context, entry StockEntry) (StockEntry, error) {
	err := s.tx.QueryRow(ctx, `INSERT INTO stock_entries
    (product_id, entry_type, quantity, applied, balance_after, note, created_by, order_ref)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`,
		entry.ProductID, string(entry.Type), entry.Quantity, entry.Applied, entry.BalanceAfter,
		entry.Note, entry.CreatedBy, entry.OrderID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return StockEntry{}, fmt.Errorf("inventory: insert entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns ledger rows newest first.
func (r *Repository) ListEntries(ctx context.Context, filter ListFilter) ([]StockEntry, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("entry_type = $%d", len(args)))
	}
	query := `SELECT id, product_id, entry_type, quantity, applied, balance_after, note, created_by, order_ref, created_at
FROM stock_entries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list entries: %w", err)
	}
	defer rows.Close()

	var entries []StockEntry
	for rows.Next() {
		var (
			e         StockEntry
			entryType string
		)
		if err := rows.Scan(&e.ID, &e.ProductID, &entryType, &e.Quantity, &e.Applied, &e.BalanceAfter,
			&e.Note, &e.CreatedBy, &e.OrderID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = EntryType(entryType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LedgerTotals returns every product's quantity next to the sum of its applied deltas.
func (r *Repository) LedgerTotals(ctx context.Context) ([]Drift, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.quantity, COALESCE(SUM(e.applied), 0)::int
FROM products p
LEFT JOIN stock_entries e ON e.product_id = p.id
GROUP BY p.id, p.sku, p.quantity
ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("inventory: ledger totals: %w", err)
	}
	defer rows.Close()

	var totals []Drift
	for rows.Next() {
		var d Drift
		if err := rows.Scan(&d.ProductID, &d.SKU, &d.Quantity, &d.LedgerSum); err != nil {
			return nil, err
		}
		totals = append(totals, d)
	}
	return totals, rows.Err()
}
