package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/supermart/supermart/internal/inventory"
	jobmetrics "github.com/supermart/supermart/internal/jobs"
)

// Reconciler reports products whose quantity disagrees with the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]inventory.Drift, error)
}

// ReconcileJob runs the ledger reconcile and publishes the drift gauge.
type ReconcileJob struct {
	Reconciler Reconciler
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewReconcileJob initialises the reconcile handler.
func NewReconcileJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{
		Reconciler: reconciler,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes TaskReconcile tasks.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reconciler == nil {
		return errors.New("reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload.RequestedBy)
	return err
}

// Run reconciles once. Drift is reported, never corrected.
func (j *ReconcileJob) Run(ctx context.Context, requestedBy string) (drifts []inventory.Drift, err error) {
	start := j.now()
	tracker := j.Metrics.Track(TaskReconcile)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("requested_by", requestedBy))
	drifts, err = j.Reconciler.Reconcile(ctx)
	if err != nil {
		logger.Error("reconcile failed", slog.Any("error", err))
		return nil, err
	}
	for _, d := range drifts {
		logger.Warn("ledger drift",
			slog.Int64("product_id", d.ProductID),
			slog.String("sku", d.SKU),
			slog.Int("quantity", d.Quantity),
			slog.Int("ledger_sum", d.LedgerSum),
			slog.Int("difference", d.Difference),
		)
	}
	j.Metrics.SetLedgerDrift(len(drifts))
	logger.Info("completed reconcile",
		slog.Int("drifted_products", len(drifts)),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return drifts, nil
}

func (j *ReconcileJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *ReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
