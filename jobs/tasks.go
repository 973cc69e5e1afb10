package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/supermart/supermart/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries operator alerts ahead of maintenance work.
	QueueCritical = "critical"
	// TaskLowStockAlert notifies operators that a product crossed its threshold.
	TaskLowStockAlert = "inventory:low_stock_alert"
	// TaskReconcile compares product quantities with their ledger sums.
	TaskReconcile = "inventory:reconcile"
)

// alertRetention keeps finished alert tasks around so repeats for the same
// product and level are dropped.
const alertRetention = 30 * time.Minute

// LowStockAlertPayload mirrors inventory.LowStockEvent on the wire.
type LowStockAlertPayload struct {
	ProductID  int64     `json:"product_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	Threshold  int       `json:"threshold"`
	EntryType  string    `json:"entry_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReconcilePayload carries scheduling metadata.
type ReconcilePayload struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewLowStockAlertTask constructs an Asynq task for a low-stock event.
func NewLowStockAlertTask(evt inventory.LowStockEvent) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockAlertPayload{
		ProductID:  evt.ProductID,
		SKU:        evt.SKU,
		Name:       evt.Name,
		Quantity:   evt.Quantity,
		Threshold:  evt.Threshold,
		EntryType:  string(evt.EntryType),
		OccurredAt: evt.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, body,
		asynq.Queue(QueueCritical),
		asynq.TaskID(lowStockTaskID(evt.ProductID, evt.Quantity)),
		asynq.Retention(alertRetention),
		asynq.MaxRetry(5),
	), nil
}

func lowStockTaskID(productID int64, quantity int) string {
	return fmt.Sprintf("low-stock:%d:%d", productID, quantity)
}

// NewReconcileTask constructs an Asynq task for ledger reconciliation.
func NewReconcileTask(requestedBy string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReconcilePayload{RequestedBy: requestedBy, RequestedAt: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}
