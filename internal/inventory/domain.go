package inventory

import (
	"time"
)

// EntryType classifies a stock movement.
type EntryType string

const (
	// EntryIn receives stock from a supplier.
	EntryIn EntryType = "IN"
	// EntryOut removes stock manually (damage, write-off). Clamped at zero.
	EntryOut EntryType = "OUT"
	// EntryAdjustment applies a signed correction with a zero floor.
	EntryAdjustment EntryType = "ADJUSTMENT"
	// EntrySale is written by checkout and never clamps.
	EntrySale EntryType = "SALE"
	// EntryReturn is written when a confirmed order is cancelled.
	EntryReturn EntryType = "RETURN"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryIn, EntryOut, EntryAdjustment, EntrySale, EntryReturn:
		return true
	}
	return false
}

// Manual reports whether staff may record t directly.
func (t EntryType) Manual() bool {
	return t == EntryIn || t == EntryOut || t == EntryAdjustment
}

// StockProduct is the slice of a product row the ledger needs.
type StockProduct struct {
	ID                int64
	SKU               string
	Name              string
	Quantity          int
	LowStockThreshold int
}

// IsLowStock reports whether the product is at or below its threshold.
func (p StockProduct) IsLowStock() bool {
	return p.Quantity <= p.LowStockThreshold
}

// StockEntry is one immutable ledger row. Quantity is the requested magnitude,
// Applied the signed delta that actually reached the product.
type StockEntry struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	Type         EntryType `json:"entry_type"`
	Quantity     int       `json:"quantity"`
	Applied      int       `json:"applied"`
	BalanceAfter int       `json:"balance_after"`
	Note         string    `json:"note,omitempty"`
	CreatedBy    int64     `json:"created_by"`
	OrderID      string    `json:"order_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Movement asks ApplyMovement to change one product's quantity.
// For ADJUSTMENT Quantity is signed; for every other type it is a positive magnitude.
type Movement struct {
	ProductID int64
	Type      EntryType
	Quantity  int
	Note      string
	ActorID   int64
	OrderID   string
}

// MovementResult pairs the written entry with the product as left by the movement.
type MovementResult struct {
	Entry   StockEntry
	Product StockProduct
}

// RecordInput carries a manual stock entry request.
type RecordInput struct {
	ProductID int64     `json:"product_id" validate:"required,gt=0"`
	Type      EntryType `json:"entry_type" validate:"required,oneof=IN OUT ADJUSTMENT"`
	Quantity  int       `json:"quantity"`
	Note      string    `json:"note" validate:"max=500"`
	Code      string    `json:"code" validate:"max=64"`
	ActorID   int64     `json:"-"`
}

// ListFilter narrows ledger listings.
type ListFilter struct {
	ProductID int64
	Type      EntryType
	Limit     int
}

const (
	defaultListLimit = 10
	maxListLimit     = 500
)

// Drift reports a product whose quantity disagrees with its ledger.
type Drift struct {
	ProductID  int64  `json:"product_id"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	LedgerSum  int    `json:"ledger_sum"`
	Difference int    `json:"difference"`
}
