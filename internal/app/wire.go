package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/supermart/supermart/internal/cart"
	"github.com/supermart/supermart/internal/catalog"
	"github.com/supermart/supermart/internal/chatbot"
	"github.com/supermart/supermart/internal/dashboard"
	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/observability"
	"github.com/supermart/supermart/internal/orders"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
	"github.com/supermart/supermart/internal/users"
)

// Core holds the domain services shared by the server, worker and CLI.
type Core struct {
	Inventory  *inventory.Service
	Catalog    *catalog.Service
	Cart       *cart.Service
	Orders     *orders.Service
	Users      *users.Service
	Dashboard  *dashboard.Service
	Chatbot    *chatbot.Responder
	Cache      *dashboard.Cache
	Dispatcher *inventory.Dispatcher
}

// CoreParams lists the infrastructure the services run on. Alerts may be nil
// to disable low-stock notifications.
type CoreParams struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Config  *Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Alerts  inventory.LowStockHandler
}

// NewCore wires repositories and services.
func NewCore(p CoreParams) *Core {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTimeout := p.Config.DBLockTimeout

	auditLogger := shared.NewAuditLogger(p.Pool)
	idempotencyStore := shared.NewIdempotencyStore(p.Pool)
	cache := dashboard.NewCache(p.Redis, p.Config.DashboardCacheTTL)

	var metrics inventory.MetricsRecorder
	var checkoutMetrics orders.CheckoutRecorder
	if p.Metrics != nil {
		metrics = p.Metrics
		checkoutMetrics = p.Metrics
	}
	dispatcher := inventory.NewDispatcher(p.Alerts, metrics, cache, logger)

	catalogService := catalog.NewService(catalog.NewRepository(p.Pool, lockTimeout), auditLogger, dispatcher, logger)
	return &Core{
		Inventory:  inventory.NewService(inventory.NewRepository(p.Pool, lockTimeout), auditLogger, idempotencyStore, dispatcher, logger),
		Catalog:    catalogService,
		Cart:       cart.NewService(cart.NewRepository(p.Pool)),
		Orders:     orders.NewService(orders.NewRepository(p.Pool, lockTimeout), auditLogger, idempotencyStore, dispatcher, checkoutMetrics, logger),
		Users:      users.NewService(users.NewRepository(p.Pool), auditLogger, logger),
		Dashboard:  dashboard.NewService(dashboard.NewRepository(p.Pool), cache, logger),
		Chatbot:    chatbot.NewResponder(catalogService, logger),
		Cache:      cache,
		Dispatcher: dispatcher,
	}
}

// RBAC returns the request identity middleware backed by the users service.
func (c *Core) RBAC(logger *slog.Logger) rbac.Middleware {
	return rbac.Middleware{Loader: c.Users, Logger: logger}
}

// Handlers builds the HTTP handlers into params.
func (c *Core) Handlers(params RouterParams) RouterParams {
	logger := params.Logger
	mw := params.RBACMiddleware
	params.CatalogHandler = catalog.NewHandler(logger, c.Catalog, mw)
	params.InventoryHandler = inventory.NewHandler(logger, c.Inventory, mw)
	params.CartHandler = cart.NewHandler(c.Cart, mw)
	params.OrdersHandler = orders.NewHandler(logger, c.Orders, mw)
	params.DashboardHandler = dashboard.NewHandler(logger, c.Dashboard, mw)
	params.UsersHandler = users.NewHandler(logger, c.Users, mw)
	params.ChatbotHandler = chatbot.NewHandler(logger, c.Chatbot)
	params.PermissionsHandler = rbac.NewPermissionsHandler(mw)
	return params
}
