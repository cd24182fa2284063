package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Money is an amount in the smallest unit of its currency, e.g. cents for USD.
// All arithmetic happens on the integer minor amount; decimal conversion exists
// only for providers whose APIs take major units.
type Money struct {
	AmountMinor int64
	Currency    currency.Unit
}

// MinorUnitExponent returns the number of decimal digits between the major and
// the minor unit of the currency: 2 for USD, 0 for JPY.
func MinorUnitExponent(unit currency.Unit) int32 {
	scale, _ := currency.Cash.Rounding(unit)
	return int32(scale)
}

// MajorUnits converts the minor amount to major units. The conversion is
// exact, an integer minor amount always has a finite decimal representation.
func (m Money) MajorUnits() decimal.Decimal {
	return decimal.New(m.AmountMinor, -MinorUnitExponent(m.Currency))
}

// MajorUnitsString formats the amount the way decimal-based provider APIs
// expect it, with exactly the currency's minor-unit digits: 1000 USD minor
// units become "10.00".
func (m Money) MajorUnitsString() string {
	return m.MajorUnits().StringFixed(MinorUnitExponent(m.Currency))
}
