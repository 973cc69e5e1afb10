package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/supermart/supermart/internal/inventory"
	jobmetrics "github.com/supermart/supermart/internal/jobs"
	_ "github.com/supermart/supermart/testing"
)

func TestLowStockAlertTaskPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task, err := NewLowStockAlertTask(inventory.LowStockEvent{
		ProductID: 7, SKU: "MILK-1L", Name: "Milk", Quantity: 2, Threshold: 10,
		EntryType: inventory.EntrySale, OccurredAt: at,
	})
	require.NoError(t, err)
	require.Equal(t, TaskLowStockAlert, task.Type())

	var payload LowStockAlertPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "MILK-1L", payload.SKU)
	require.Equal(t, "SALE", payload.EntryType)
	require.True(t, payload.OccurredAt.Equal(at))
	require.Equal(t, "low-stock:7:2", lowStockTaskID(7, 2))
}

func TestLowStockAlertHandle(t *testing.T) {
	job := NewLowStockAlertJob(nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewLowStockAlertTask(inventory.LowStockEvent{ProductID: 1, SKU: "EGGS", Quantity: 0, Threshold: 5})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	err = job.Handle(context.Background(), asynq.NewTask(TaskLowStockAlert, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type stubReconciler struct {
	drifts []inventory.Drift
	err    error
	calls  int
}

func (s *stubReconciler) Reconcile(ctx context.Context) ([]inventory.Drift, error) {
	s.calls++
	return s.drifts, s.err
}

func TestReconcileJob(t *testing.T) {
	rec := &stubReconciler{drifts: []inventory.Drift{{ProductID: 3, SKU: "TEA", Quantity: 5, LedgerSum: 4, Difference: 1}}}
	job := NewReconcileJob(rec, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewReconcileTask("cli", time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, rec.calls)

	drifts, err := job.Run(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, drifts, 1)

	rec.err = errors.New("db down")
	_, err = job.Run(context.Background(), "test")
	require.Error(t, err)

	var nilJob *ReconcileJob
	require.Error(t, nilJob.Handle(context.Background(), task))
}

type stubInspector struct {
	infos map[string]*asynq.QueueInfo
	err   error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.infos[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHealthEndpoint(t *testing.T) {
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(NewHandler(nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queues":[
		{"queue":"critical","pending":0,"active":0,"retry":0,"archived":0},
		{"queue":"default","pending":0,"active":0,"retry":0,"archived":0}]}`, rec.Body.String())

	rec = serve(NewHandler(stubInspector{infos: map[string]*asynq.QueueInfo{
		QueueDefault: {Queue: QueueDefault, Pending: 4, Retry: 1},
	}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queues":[
		{"queue":"critical","pending":0,"active":0,"retry":0,"archived":0},
		{"queue":"default","pending":4,"active":0,"retry":1,"archived":0}]}`, rec.Body.String())

	rec = serve(NewHandler(stubInspector{err: errors.New("redis down")}, nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewWorkerRejectsIncompleteHandler(t *testing.T) {
	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Handlers:  []TaskHandler{{Type: TaskReconcile}},
	})
	require.Error(t, err)
}
