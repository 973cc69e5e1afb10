package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/supermart/supermart/internal/shared"
)

// RepositoryPort abstracts cart persistence. Product prices and quantities are
// read live from the products table.
type RepositoryPort interface {
	GetCart(ctx context.Context, userID int64) (Cart, error)
	// AddItem creates the cart if needed and inserts the product with quantity
	// one, or increments an existing line by one.
	AddItem(ctx context.Context, userID, productID int64) (Item, error)
	GetItem(ctx context.Context, userID, itemID int64) (Item, error)
	SetItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, itemID int64) error
}

// Service implements cart mutations. It never touches stock.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns the user's cart; a user without one gets an empty cart.
func (s *Service) Get(ctx context.Context, userID int64) (Cart, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return Cart{UserID: userID, Items: []Item{}}, nil
	}
	return c, err
}

// AddItem adds one unit of the product.
func (s *Service) AddItem(ctx context.Context, userID, productID int64) (Item, error) {
	if userID == 0 {
		return Item{}, shared.ErrUnauthorized
	}
	if productID <= 0 {
		return Item{}, shared.NewValidationError("product_id", "required")
	}
	return s.repo.AddItem(ctx, userID, productID)
}

// SetQuantity sets an item's quantity; n must be within 1..available stock.
func (s *Service) SetQuantity(ctx context.Context, userID, itemID int64, n int) (Item, error) {
	item, err := s.repo.GetItem(ctx, userID, itemID)
	if err != nil {
		return Item{}, err
	}
	if n <= 0 || n > item.Available {
		return Item{}, fmt.Errorf("%w: %s accepts 1..%d, got %d", shared.ErrInvalidQuantity, item.SKU, item.Available, n)
	}
	if err := s.repo.SetItemQuantity(ctx, item.ID, n); err != nil {
		return Item{}, err
	}
	item.Quantity = n
	return item, nil
}

// RemoveItem deletes an item from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	item, err := s.repo.GetItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, item.ID)
}
