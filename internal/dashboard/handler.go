package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/supermart/supermart/internal/platform/httpx"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

// Handler serves the role dashboards.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs dashboard handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.DashboardCustomer)).Get("/customer", h.customer)
	r.With(h.rbac.RequireAny(rbac.DashboardStaff)).Get("/staff", h.staff)
	r.With(h.rbac.RequireAny(rbac.DashboardManager)).Get("/manager", h.manager)
	r.With(h.rbac.RequireAny(rbac.DashboardAdmin)).Get("/admin", h.admin)
}

func (h *Handler) customer(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	out, err := h.service.Customer(r.Context(), actor.ID)
	h.respond(w, "customer", out, err)
}

func (h *Handler) staff(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Staff(r.Context())
	h.respond(w, "staff", out, err)
}

func (h *Handler) manager(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Manager(r.Context())
	h.respond(w, "manager", out, err)
}

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Admin(r.Context())
	h.respond(w, "admin", out, err)
}

func (h *Handler) respond(w http.ResponseWriter, name string, body any, err error) {
	if err != nil {
		h.logger.Error("dashboard", slog.String("dashboard", name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, body)
}
