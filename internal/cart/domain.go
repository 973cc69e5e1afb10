package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/supermart/supermart/internal/shared"
)

// Cart is a user's staging area for checkout. Totals are derived from the
// items' live product prices every time they are read.
type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is one product line in a cart.
type Item struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Available int             `json:"available"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

// Subtotal is quantity times the current unit price.
func (i Item) Subtotal() decimal.Decimal {
	return shared.LineTotal(i.UnitPrice, i.Quantity)
}

// TotalItems sums item quantities.
func (c Cart) TotalItems() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

// TotalAmount sums item subtotals at current prices.
func (c Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return shared.Money(total)
}

// IsEmpty reports whether the cart has no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// View is the JSON representation with derived totals.
type View struct {
	Cart
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewView computes totals for c.
func NewView(c Cart) View {
	if c.Items == nil {
		c.Items = []Item{}
	}
	return View{Cart: c, TotalItems: c.TotalItems(), TotalAmount: c.TotalAmount()}
}
