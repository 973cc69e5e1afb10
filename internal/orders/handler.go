package orders

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/supermart/supermart/internal/platform/httpx"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

// HeaderIdempotencyKey lets clients make checkout safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// Handler exposes checkout and order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs orders handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountCheckout registers POST /checkout.
func (h *Handler) MountCheckout(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.OrderCheckout)).Post("/", h.checkout)
}

// MountRoutes registers /orders routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.OrderViewOwn, rbac.OrderManage))
		r.Get("/", h.list)
		r.Get("/{orderID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.OrderManage))
		r.Patch("/{orderID}/status", h.updateStatus)
		r.Patch("/{orderID}/payment", h.updatePayment)
	})
}

// MountPayments registers the payment gateway callback.
func (h *Handler) MountPayments(r chi.Router) {
	r.Post("/callback", h.paymentCallback)
}

// MountReports registers revenue reporting.
func (h *Handler) MountReports(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.ReportsView)).Get("/revenue", h.revenue)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var input CheckoutInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.IdempotencyKey = strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.Checkout(r.Context(), actor.ID, input)
	if err != nil {
		h.logger.Info("checkout rejected", slog.Int64("user_id", actor.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	q := r.URL.Query()
	list, err := h.service.List(r.Context(), actor, q.Get("all") == "1", Status(strings.ToUpper(q.Get("status"))))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Order{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "orderID"), Status(strings.ToUpper(req.Status)))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type paymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.UpdatePaymentStatus(r.Context(), actor, chi.URLParam(r, "orderID"), PaymentStatus(strings.ToUpper(req.PaymentStatus)))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// paymentCallback acknowledges gateway callbacks without processing them.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("payment callback", slog.String("remote", r.RemoteAddr))
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Payment callback received."})
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	rev, err := h.service.Revenue(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rev)
}
