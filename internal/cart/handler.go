package cart

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/supermart/supermart/internal/platform/httpx"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

// Handler exposes the current actor's cart.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs cart handler.
func NewHandler(service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers /cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CartManage))
		r.Get("/", h.get)
		r.Post("/items", h.addItem)
		r.Patch("/items/{id}", h.updateItem)
		r.Delete("/items/{id}", h.removeItem)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	c, err := h.service.Get(r.Context(), actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(c))
}

type addRequest struct {
	ProductID int64 `json:"product_id"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	item, err := h.service.AddItem(r.Context(), actor.ID, req.ProductID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	item, err := h.service.SetQuantity(r.Context(), actor.ID, itemID, req.Quantity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.RemoveItem(r.Context(), actor.ID, itemID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}
