package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/supermart/supermart/internal/shared"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// PaymentStatus is the settlement state of an order.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentSuccess    PaymentStatus = "SUCCESS"
	PaymentFailed     PaymentStatus = "FAILED"
)

var statusFlow = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

var paymentFlow = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing},
	PaymentProcessing: {PaymentSuccess, PaymentFailed},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range statusFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentProcessing, PaymentSuccess, PaymentFailed:
		return true
	}
	return false
}

// CanTransitionPayment reports whether from -> to is allowed.
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is the commercial record created at checkout.
type Order struct {
	ID              int64           `json:"id"`
	OrderID         string          `json:"order_id"`
	UserID          int64           `json:"user_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	Phone           string          `json:"phone"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	Status          Status          `json:"status"`
	Items           []Item          `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Item snapshots the product and its price at purchase time.
type Item struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"-"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal is quantity times the snapshotted price.
func (i Item) Subtotal() decimal.Decimal {
	return shared.LineTotal(i.Price, i.Quantity)
}

// CheckoutInput carries the shipping details for a checkout.
type CheckoutInput struct {
	ShippingAddress string `json:"shipping_address" validate:"required,min=5,max=500"`
	Phone           string `json:"phone" validate:"required,max=15,phone"`
	IdempotencyKey  string `json:"-"`
}

// CartLine is one product line read from the cart inside the checkout transaction.
type CartLine struct {
	ProductID int64
	Quantity  int
}

// CartSnapshot is the cart as seen by checkout.
type CartSnapshot struct {
	ID    int64
	Lines []CartLine
}

// LockedProduct is a product row held under lock by checkout.
type LockedProduct struct {
	ID       int64
	SKU      string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// ListFilter narrows order listings. UserID zero lists every user's orders.
type ListFilter struct {
	UserID int64
	Status Status
	Limit  int
}

// Revenue aggregates settled orders.
type Revenue struct {
	Total  decimal.Decimal `json:"total"`
	Orders int             `json:"orders"`
}
