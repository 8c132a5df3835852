package utils

import (
	"github.com/shopspring/decimal"
)

// MinorToDecimal converts integer minor units (kobo) into a decimal
// major-unit amount for display. All internal arithmetic stays in
// minor units; this is a presentation helper only.
func MinorToDecimal(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}
