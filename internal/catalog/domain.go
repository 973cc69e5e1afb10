package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold applies when a product is created without one.
const DefaultLowStockThreshold = 10

// MaxPrice is the largest price the NUMERIC(10,2) price columns hold.
var MaxPrice = decimal.RequireFromString("99999999.99")

// Category groups products.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product is a sellable item. SKU is the immutable business key.
type Product struct {
	ID                int64           `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Supplier          string          `json:"supplier,omitempty"`
	ImageURL          string          `json:"image_url,omitempty"`
	CategoryID        int64           `json:"category_id"`
	CategoryName      string          `json:"category_name,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsLowStock reports whether quantity is at or below the threshold.
func (p Product) IsLowStock() bool {
	return p.Quantity <= p.LowStockThreshold
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// ProductFilter narrows product listings. Out-of-stock products are hidden
// unless IncludeOutOfStock is set.
type ProductFilter struct {
	Query             string
	CategoryID        int64
	IncludeOutOfStock bool
	Limit             int
}

// CreateProductInput carries a new product. Quantity is the opening stock.
type CreateProductInput struct {
	SKU               string          `json:"sku" validate:"required,max=50"`
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description"`
	Supplier          string          `json:"supplier" validate:"max=200"`
	ImageURL          string          `json:"image_url" validate:"omitempty,url"`
	CategoryID        int64           `json:"category_id" validate:"required,gt=0"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity" validate:"gte=0"`
	LowStockThreshold *int            `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	ActorID           int64           `json:"-"`
}

// CreateCategoryInput carries a new category.
type CreateCategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}
