package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/supermart/supermart/internal/jobs"
)

// LowStockAlertJob delivers low-stock alerts to the operations log.
type LowStockAlertJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockAlertJob initialises the alert handler.
func NewLowStockAlertJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockAlertJob {
	return &LowStockAlertJob{Logger: logger, Metrics: metrics}
}

// Handle processes TaskLowStockAlert tasks.
func (j *LowStockAlertJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("low stock alert: handler not configured")
	}
	var payload LowStockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.SKU == "" {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskLowStockAlert)
	defer func() { err = tracker.End(err) }()

	logger := j.logger()
	out := payload.Quantity == 0
	msg := "product low on stock"
	if out {
		msg = "product out of stock"
	}
	logger.Warn(msg,
		slog.Int64("product_id", payload.ProductID),
		slog.String("sku", payload.SKU),
		slog.String("name", payload.Name),
		slog.Int("quantity", payload.Quantity),
		slog.Int("threshold", payload.Threshold),
		slog.String("entry_type", payload.EntryType),
		slog.Time("occurred_at", payload.OccurredAt),
	)
	j.Metrics.AddLowStockAlert(out)
	return nil
}

func (j *LowStockAlertJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
