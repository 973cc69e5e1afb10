package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem is a product row shown on stock dashboards.
type StockItem struct {
	ProductID         int64  `json:"product_id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// OrderLine summarises one order.
type OrderLine struct {
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Counts aggregates store-wide figures.
type Counts struct {
	Products      int             `json:"total_products"`
	LowStock      int             `json:"low_stock_count"`
	OutOfStock    int             `json:"out_of_stock_count"`
	PendingOrders int             `json:"pending_orders"`
	Orders        int             `json:"total_orders"`
	Users         int             `json:"total_users"`
	Revenue       decimal.Decimal `json:"total_revenue"`
}

// Customer is the shopper landing page.
type Customer struct {
	UserID    int64           `json:"user_id"`
	Orders    []OrderLine     `json:"orders"`
	CartItems int             `json:"cart_items"`
	CartTotal decimal.Decimal `json:"cart_total"`
}

// Staff lists products that need restocking.
type Staff struct {
	LowStock        []StockItem `json:"low_stock"`
	LowStockCount   int         `json:"low_stock_count"`
	OutOfStockCount int         `json:"out_of_stock_count"`
}

// Manager is the store overview.
type Manager struct {
	TotalProducts   int             `json:"total_products"`
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
	PendingOrders   int             `json:"pending_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

// Admin adds account and order totals to the overview.
type Admin struct {
	Manager
	TotalUsers  int `json:"total_users"`
	TotalOrders int `json:"total_orders"`
}

const (
	recentOrdersLimit = 10
	lowStockLimit     = 50
)
