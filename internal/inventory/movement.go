package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/supermart/supermart/internal/shared"
)

// TxRepository exposes the row operations a movement needs inside a transaction.
type TxRepository interface {
	// GetProductForUpdate loads the product and holds its row lock until commit.
	GetProductForUpdate(ctx context.Context, productID int64) (StockProduct, error)
	// AddProductQuantity applies delta only if the result stays non-negative and
	// returns the new quantity. A refused update yields shared.ErrInsufficientStock.
	AddProductQuantity(ctx context.Context, productID int64, delta int) (int, error)
	InsertEntry(ctx context.Context, entry StockEntry) (StockEntry, error)
}

// ApplyMovement is the only code path that changes a product's quantity. It
// locks the product, computes the applied delta, writes the new quantity and
// appends the ledger row, all inside the caller's transaction.
func ApplyMovement(ctx context.Context, tx TxRepository, m Movement) (MovementResult, error) {
	if err := validateMovement(m); err != nil {
		return MovementResult{}, err
	}
	product, err := tx.GetProductForUpdate(ctx, m.ProductID)
	if err != nil {
		return MovementResult{}, err
	}

	applied, err := appliedDelta(product, m)
	if err != nil {
		return MovementResult{}, err
	}

	balance := product.Quantity
	if applied != 0 {
		balance, err = tx.AddProductQuantity(ctx, product.ID, applied)
		if err != nil {
			return MovementResult{}, err
		}
	}
	product.Quantity = balance

	magnitude := m.Quantity
	if magnitude < 0 {
		magnitude = -magnitude
	}
	entry, err := tx.InsertEntry(ctx, StockEntry{
		ProductID:    product.ID,
		Type:         m.Type,
		Quantity:     magnitude,
		Applied:      applied,
		BalanceAfter: balance,
		Note:         strings.TrimSpace(m.Note),
		CreatedBy:    m.ActorID,
		OrderID:      m.OrderID,
	})
	if err != nil {
		return MovementResult{}, err
	}
	return MovementResult{Entry: entry, Product: product}, nil
}

func validateMovement(m Movement) error {
	if m.ProductID == 0 {
		return shared.NewValidationError("product_id", "required")
	}
	if !m.Type.Valid() {
		return shared.NewValidationError("entry_type", fmt.Sprintf("unknown type %q", m.Type))
	}
	if m.ActorID == 0 {
		return shared.NewValidationError("created_by", "actor required")
	}
	switch m.Type {
	case EntryAdjustment:
		if m.Quantity == 0 {
			return fmt.Errorf("%w: adjustment must be non-zero", shared.ErrInvalidQuantity)
		}
	default:
		if m.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", shared.ErrInvalidQuantity)
		}
	}
	if (m.Type == EntrySale || m.Type == EntryReturn) && m.OrderID == "" {
		return shared.NewValidationError("order_id", "required for order movements")
	}
	return nil
}

func appliedDelta(p StockProduct, m Movement) (int, error) {
	switch m.Type {
	case EntryIn, EntryReturn:
		return m.Quantity, nil
	case EntryOut:
		return -min(m.Quantity, p.Quantity), nil
	case EntryAdjustment:
		if p.Quantity+m.Quantity < 0 {
			return -p.Quantity, nil
		}
		return m.Quantity, nil
	case EntrySale:
		if p.Quantity < m.Quantity {
			return 0, fmt.Errorf("%w: %s has %d, requested %d", shared.ErrInsufficientStock, p.SKU, p.Quantity, m.Quantity)
		}
		return -m.Quantity, nil
	}
	return 0, shared.NewValidationError("entry_type", "unsupported")
}
