package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/supermart/supermart/internal/platform/httpx"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

// Handler exposes catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /products routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Get("/{ref}", h.getProduct)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CatalogManage))
		r.Post("/", h.createProduct)
		r.Patch("/{ref}/price", h.changePrice)
	})
}

// MountCategoryRoutes registers /categories routes.
func (h *Handler) MountCategoryRoutes(r chi.Router) {
	r.Get("/", h.listCategories)
	r.With(h.rbac.RequireAny(rbac.CatalogManage)).Post("/", h.createCategory)
}

// MountStockRoutes registers the stock level queries under /inventory.
func (h *Handler) MountStockRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.StockView))
		r.Get("/low-stock", h.lowStock)
		r.Get("/out-of-stock", h.outOfStock)
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ProductFilter{Query: q.Get("q"), IncludeOutOfStock: q.Get("all") == "1"}
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("category_id", "must be an integer"))
			return
		}
		filter.CategoryID = id
	}
	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	respondProducts(w, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var input CreateProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input.ActorID = actor.ID
	p, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		h.logger.Info("create product", slog.String("sku", input.SKU), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (h *Handler) changePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	p, err := h.service.ChangePrice(r.Context(), actor.ID, chi.URLParam(r, "ref"), req.Price)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.ListCategories(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if cats == nil {
		cats = []Category{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var input CreateCategoryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LowStock(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	respondProducts(w, products)
}

func (h *Handler) outOfStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.OutOfStock(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	respondProducts(w, products)
}

func respondProducts(w http.ResponseWriter, products []Product) {
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}
