package models

import "github.com/shopspring/decimal"

// PricePrecision is the number of decimals zone prices are reported with.
const PricePrecision = 4

// RoundPrice rounds half away from zero to PricePrecision decimals.
func RoundPrice(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(PricePrecision).Float64()
	return f
}

// PriceKey is the canonical string form of a quantized price, used where
// prices must compare equal after rounding.
func PriceKey(v float64) string {
	return decimal.NewFromFloat(v).Round(PricePrecision).StringFixed(PricePrecision)
}
