package shared

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fractional digits kept for prices and totals.
const MoneyPlaces = 2

// Money rounds an amount to two fractional digits.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// LineTotal returns unit price times quantity, rounded.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return Money(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
}
