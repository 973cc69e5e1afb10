package inventory

import (
	"context"
	"log/slog"
	"time"
)

// Dispatcher runs the side effects of committed movements: metrics, cache
// invalidation and low-stock alerts. Failures are logged and never returned.
type Dispatcher struct {
	alerts  LowStockHandler
	metrics MetricsRecorder
	cache   CacheInvalidator
	logger  *slog.Logger
}

// NewDispatcher builds a Dispatcher. Any dependency may be nil.
func NewDispatcher(alerts LowStockHandler, metrics MetricsRecorder, cache CacheInvalidator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{alerts: alerts, metrics: metrics, cache: cache, logger: logger}
}

// Dispatch must only be called after the transaction that produced results committed.
func (d *Dispatcher) Dispatch(ctx context.Context, results ...MovementResult) {
	if d == nil || len(results) == 0 {
		return
	}
	now := time.Now().UTC()
	for _, res := range results {
		if d.metrics != nil {
			d.metrics.ObserveMovement(string(res.Entry.Type), res.Entry.Applied)
		}
		if d.alerts == nil || !crossedLowStock(res) {
			continue
		}
		evt := LowStockEvent{
			ProductID:  res.Product.ID,
			SKU:        res.Product.SKU,
			Name:       res.Product.Name,
			Quantity:   res.Product.Quantity,
			Threshold:  res.Product.LowStockThreshold,
			EntryType:  res.Entry.Type,
			OccurredAt: now,
		}
		if err := d.alerts.HandleLowStock(ctx, evt); err != nil {
			d.logger.Warn("low stock alert", slog.String("sku", evt.SKU), slog.Any("error", err))
		}
	}
	d.Invalidate(ctx)
}

// Invalidate bumps the summary cache without any movement, e.g. after a price change.
func (d *Dispatcher) Invalidate(ctx context.Context) {
	if d == nil || d.cache == nil {
		return
	}
	if err := d.cache.Bump(ctx); err != nil {
		d.logger.Warn("cache bump", slog.Any("error", err))
	}
}

// crossedLowStock is true for movements that took stock away and left the
// product at or below its threshold. Restocks never alert.
func crossedLowStock(res MovementResult) bool {
	return res.Entry.Applied < 0 && res.Product.IsLowStock()
}
