package service

import "github.com/shopspring/decimal"

// LineTotal is unitPrice * quantity rounded half away from zero to cents
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
