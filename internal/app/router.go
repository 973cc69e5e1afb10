package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/supermart/supermart/internal/cart"
	"github.com/supermart/supermart/internal/catalog"
	"github.com/supermart/supermart/internal/chatbot"
	"github.com/supermart/supermart/internal/dashboard"
	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/observability"
	"github.com/supermart/supermart/internal/orders"
	"github.com/supermart/supermart/internal/platform/httpx"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/users"
	"github.com/supermart/supermart/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	RBACMiddleware rbac.Middleware

	CatalogHandler     *catalog.Handler
	InventoryHandler   *inventory.Handler
	CartHandler        *cart.Handler
	OrdersHandler      *orders.Handler
	DashboardHandler   *dashboard.Handler
	UsersHandler       *users.Handler
	ChatbotHandler     *chatbot.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Supermart defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
		RBAC:    params.RBACMiddleware,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if h := params.CatalogHandler; h != nil {
			r.Route("/products", h.MountRoutes)
			r.Route("/categories", h.MountCategoryRoutes)
		}
		r.Route("/inventory", func(r chi.Router) {
			if params.CatalogHandler != nil {
				params.CatalogHandler.MountStockRoutes(r)
			}
			if params.InventoryHandler != nil {
				params.InventoryHandler.MountRoutes(r)
			}
		})
		if params.CartHandler != nil {
			r.Route("/cart", params.CartHandler.MountRoutes)
		}
		if h := params.OrdersHandler; h != nil {
			r.Route("/checkout", func(r chi.Router) {
				r.Use(checkoutLimiter(params.Config))
				h.MountCheckout(r)
			})
			r.Route("/orders", h.MountRoutes)
			r.Route("/payments", h.MountPayments)
			r.Route("/reports", h.MountReports)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.ChatbotHandler != nil {
			r.Route("/chatbot", params.ChatbotHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
