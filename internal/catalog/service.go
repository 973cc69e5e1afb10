package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/shared"
)

// RepositoryPort abstracts catalog persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProductBySKU(ctx context.Context, sku string) (Product, error)
	GetProductByID(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	FindMentioned(ctx context.Context, text string) (Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (Category, error)
	LowStock(ctx context.Context) ([]Product, error)
	OutOfStock(ctx context.Context) ([]Product, error)
}

// TxRepository exposes the transactional writes catalog needs. Stock
// movements run through the embedded ledger operations.
type TxRepository interface {
	inventory.TxRepository
	CategoryExists(ctx context.Context, id int64) (bool, error)
	InsertProduct(ctx context.Context, p Product) (Product, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes catalog operations.
type Service struct {
	repo       RepositoryPort
	audit      AuditPort
	dispatcher *inventory.Dispatcher
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, dispatcher *inventory.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, dispatcher: dispatcher, validate: validator.New(), logger: logger}
}

// GetProduct resolves a product by SKU, falling back to its numeric id.
func (s *Service) GetProduct(ctx context.Context, ref string) (Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Product{}, shared.NewValidationError("ref", "sku or id required")
	}
	p, err := s.repo.GetProductBySKU(ctx, ref)
	if err == nil || !errors.Is(err, shared.ErrNotFound) {
		return p, err
	}
	id, convErr := strconv.ParseInt(ref, 10, 64)
	if convErr != nil || id <= 0 {
		return Product{}, err
	}
	return s.repo.GetProductByID(ctx, id)
}

// ListProducts lists products matching filter.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 200
	}
	return s.repo.ListProducts(ctx, filter)
}

// FindMentioned returns the product with the longest name contained in text,
// searching the whole catalog including out of stock products.
func (s *Service) FindMentioned(ctx context.Context, text string) (Product, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Product{}, fmt.Errorf("catalog: mentioned product: %w", shared.ErrNotFound)
	}
	return s.repo.FindMentioned(ctx, text)
}

// ListCategories returns every category ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory adds a category.
func (s *Service) CreateCategory(ctx context.Context, input CreateCategoryInput) (Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		return Category{}, shared.FromValidator(err)
	}
	return s.repo.CreateCategory(ctx, input)
}

// LowStock returns products at or below their threshold.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	return s.repo.LowStock(ctx)
}

// OutOfStock returns products with zero quantity.
func (s *Service) OutOfStock(ctx context.Context) ([]Product, error) {
	return s.repo.OutOfStock(ctx)
}

// CreateProduct inserts the product with zero stock and books any opening
// quantity as an IN ledger entry in the same transaction.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	input.SKU = strings.ToUpper(strings.TrimSpace(input.SKU))
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		return Product{}, shared.FromValidator(err)
	}
	if err := checkPrice(input.Price); err != nil {
		return Product{}, err
	}
	if input.ActorID == 0 {
		return Product{}, fmt.Errorf("catalog: create product: %w", shared.ErrUnauthorized)
	}
	threshold := DefaultLowStockThreshold
	if input.LowStockThreshold != nil {
		threshold = *input.LowStockThreshold
	}

	var (
		created Product
		opening *inventory.MovementResult
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.CategoryExists(ctx, input.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewValidationError("category_id", "unknown category")
		}
		created, err = tx.InsertProduct(ctx, Product{
			SKU:               input.SKU,
			Name:              input.Name,
			Description:       input.Description,
			Supplier:          input.Supplier,
			ImageURL:          input.ImageURL,
			CategoryID:        input.CategoryID,
			Price:             shared.Money(input.Price),
			LowStockThreshold: threshold,
		})
		if err != nil {
			return err
		}
		if input.Quantity == 0 {
			return nil
		}
		res, err := inventory.ApplyMovement(ctx, tx, inventory.Movement{
			ProductID: created.ID,
			Type:      inventory.EntryIn,
			Quantity:  input.Quantity,
			Note:      "opening stock",
			ActorID:   input.ActorID,
		})
		if err != nil {
			return err
		}
		created.Quantity = res.Product.Quantity
		opening = &res
		return nil
	})
	if err != nil {
		return Product{}, err
	}

	s.record(ctx, input.ActorID, "catalog:create", created.SKU, map[string]any{
		"name":     created.Name,
		"price":    created.Price.StringFixed(shared.MoneyPlaces),
		"quantity": created.Quantity,
	})
	if opening != nil {
		s.dispatcher.Dispatch(ctx, *opening)
	}
	return created, nil
}

// ChangePrice sets a new unit price. Carts see it immediately; orders keep
// their snapshot.
func (s *Service) ChangePrice(ctx context.Context, actorID int64, ref string, price decimal.Decimal) (Product, error) {
	if err := checkPrice(price); err != nil {
		return Product{}, err
	}
	current, err := s.GetProduct(ctx, ref)
	if err != nil {
		return Product{}, err
	}
	var updated Product
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.UpdatePrice(ctx, current.ID, shared.Money(price))
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, actorID, "catalog:price", updated.SKU, map[string]any{
		"from": current.Price.StringFixed(shared.MoneyPlaces),
		"to":   updated.Price.StringFixed(shared.MoneyPlaces),
	})
	s.dispatcher.Invalidate(ctx)
	return updated, nil
}

func checkPrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return shared.NewValidationError("price", "must not be negative")
	case shared.Money(price).GreaterThan(MaxPrice):
		return shared.NewValidationError("price", "must not exceed "+MaxPrice.StringFixed(shared.MoneyPlaces))
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action, sku string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: sku,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit catalog", slog.String("action", action), slog.Any("error", err))
	}
}
