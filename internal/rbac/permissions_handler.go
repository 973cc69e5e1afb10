package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/supermart/supermart/internal/platform/httpx"
	"github.com/supermart/supermart/internal/shared"
)

// PermissionsHandler reports the current actor's capabilities.
type PermissionsHandler struct {
	rbac Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireActor).Get("/", h.me)
}

type meResponse struct {
	UserID       int64    `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Dashboard    string   `json:"dashboard"`
	Capabilities []string `json:"capabilities"`
}

func (h *PermissionsHandler) me(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	role := Role(actor.Role)
	httpx.JSON(w, http.StatusOK, meResponse{
		UserID:       actor.ID,
		Email:        actor.Email,
		Role:         actor.Role,
		Dashboard:    DashboardFor(role),
		Capabilities: Capabilities(role),
	})
}
