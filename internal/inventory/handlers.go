package inventory

import "context"

// LowStockHandler receives low-stock events after the movement committed.
type LowStockHandler interface {
	HandleLowStock(ctx context.Context, evt LowStockEvent) error
}

// MetricsRecorder observes applied movements.
type MetricsRecorder interface {
	ObserveMovement(entryType string, applied int)
}

// CacheInvalidator drops cached summaries that depend on stock levels.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}
