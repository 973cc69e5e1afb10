package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/supermart/supermart/internal/platform/httpx"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.StockView))
		r.Get("/entries", h.listEntries)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.StockRecord))
		r.Post("/entries", h.recordEntry)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.InventoryAudit))
		r.Get("/reconcile", h.reconcile)
	})
}

type recordRequest struct {
	ProductID int64  `json:"product_id"`
	EntryType string `json:"entry_type"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
	Code      string `json:"code"`
}

func (h *Handler) recordEntry(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	entry, err := h.service.RecordEntry(r.Context(), RecordInput{
		ProductID: req.ProductID,
		Type:      EntryType(strings.ToUpper(strings.TrimSpace(req.EntryType))),
		Quantity:  req.Quantity,
		Note:      req.Note,
		Code:      req.Code,
		ActorID:   actor.ID,
	})
	if err != nil {
		h.logger.Info("record stock entry", slog.Int64("product_id", req.ProductID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter ListFilter
	if raw := q.Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("product_id", "must be an integer"))
			return
		}
		filter.ProductID = id
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("limit", "must be an integer"))
			return
		}
		filter.Limit = limit
	}
	filter.Type = EntryType(strings.ToUpper(q.Get("type")))
	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []StockEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.service.Reconcile(r.Context())
	if err != nil {
		h.logger.Error("reconcile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"consistent": len(drifts) == 0, "drifts": drifts})
}
