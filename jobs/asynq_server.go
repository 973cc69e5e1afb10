package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/platform/httpx"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts       asynq.RedisClientOpt
	Logger          *slog.Logger
	Concurrency     int
	ShutdownTimeout time.Duration
	Handlers        []TaskHandler
	Cron            []CronRegistration
}

// queuePriority weights alert delivery above reconcile runs.
var queuePriority = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			return nil, fmt.Errorf("worker: incomplete handler registration %q", h.Type)
		}
		mux.HandleFunc(h.Type, h.Handler)
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          queuePriority,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          newAsynqLogger(logger),
		ErrorHandler:    taskErrorHandler(logger),
	})

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{
			Location: time.UTC,
			Logger:   newAsynqLogger(logger),
		})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, fmt.Errorf("worker: register cron %s: %w", entry.Task.Type(), err)
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

func taskErrorHandler(logger *slog.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		level := slog.LevelWarn
		if retried >= maxRetry {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "task failed",
			slog.String("type", task.Type()),
			slog.Int("retried", retried),
			slog.Int("max_retry", maxRetry),
			slog.Any("error", err),
		)
	})
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{client: asynq.NewClient(redisOpts), logger: logger}, nil
}

// EnqueueLowStockAlert enqueues a low-stock alert. A repeat for the same
// product and quantity while the previous task is retained is not an error.
func (c *Client) EnqueueLowStockAlert(ctx context.Context, evt inventory.LowStockEvent) (*asynq.TaskInfo, error) {
	task, err := NewLowStockAlertTask(evt)
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil, nil
	}
	return info, err
}

// HandleLowStock implements inventory.LowStockHandler by enqueueing an alert.
func (c *Client) HandleLowStock(ctx context.Context, evt inventory.LowStockEvent) error {
	info, err := c.EnqueueLowStockAlert(ctx, evt)
	if err != nil {
		return err
	}
	if info != nil {
		c.logger.Debug("low stock alert enqueued", slog.String("task_id", info.ID), slog.String("sku", evt.SKU))
	}
	return nil
}

// EnqueueReconcile enqueues an on-demand reconcile run.
func (c *Client) EnqueueReconcile(ctx context.Context, requestedBy string) (*asynq.TaskInfo, error) {
	task, err := NewReconcileTask(requestedBy, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueInspector is the part of asynq.Inspector the health endpoint reads.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

// QueueHealth is the per-queue part of the health report.
type QueueHealth struct {
	Queue    string `json:"queue"`
	Pending  int    `json:"pending"`
	Active   int    `json:"active"`
	Retry    int    `json:"retry"`
	Archived int    `json:"archived"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	report := make([]QueueHealth, 0, 2)
	for _, queue := range []string{QueueCritical, QueueDefault} {
		entry := QueueHealth{Queue: queue}
		if h.inspector != nil {
			info, err := h.inspector.GetQueueInfo(queue)
			switch {
			case errors.Is(err, asynq.ErrQueueNotFound):
			case err != nil:
				h.logger.Warn("jobs health", slog.String("queue", queue), slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "the job queue could not be inspected")
				return
			case info != nil:
				entry.Pending, entry.Active, entry.Retry, entry.Archived = info.Pending, info.Active, info.Retry, info.Archived
			}
		}
		report = append(report, entry)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": report})
}
