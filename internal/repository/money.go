package repository

import "github.com/shopspring/decimal"

// roundAmount округляет сумму до копеек (пайс) перед записью в NUMERIC(14,2).
func roundAmount(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}
