package inventory

import "time"

// LowStockEvent is raised after a movement leaves a product at or below its threshold.
type LowStockEvent struct {
	ProductID  int64     `json:"product_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	Threshold  int       `json:"threshold"`
	EntryType  EntryType `json:"entry_type"`
	OccurredAt time.Time `json:"occurred_at"`
}
