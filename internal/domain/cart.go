package domain

import (
	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

// CartLine is one product in a cart summary with the price the catalog
// reported at read time.
type CartLine struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice Money
	Quantity  int32
}

func (l CartLine) LineTotalMinor() int64 {
	return l.UnitPrice.AmountMinor * int64(l.Quantity)
}

// CartSnapshot is the cart collaborator's view of a user's cart at a single
// point in time. It is never persisted as-is; checkout freezes it into order
// line items.
type CartSnapshot struct {
	UserID string
	Lines  []CartLine
}

// SubtotalMinor sums the line totals in minor units.
func (s CartSnapshot) SubtotalMinor() int64 {
	var total int64
	for _, l := range s.Lines {
		total += l.LineTotalMinor()
	}
	return total
}

// CurrencyUnit returns the uniform currency of the snapshot. Only meaningful
// after Validate has passed.
func (s CartSnapshot) CurrencyUnit() currency.Unit {
	return s.Lines[0].UnitPrice.Currency
}

// Validate checks the preconditions for proceeding to checkout: at least one
// line, positive quantities, and a single currency across all lines.
func (s CartSnapshot) Validate() error {
	if len(s.Lines) == 0 {
		return ErrEmptyCart
	}

	cur := s.Lines[0].UnitPrice.Currency
	for _, l := range s.Lines {
		if l.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if l.UnitPrice.Currency != cur {
			return ErrMixedCurrencies
		}
	}

	return nil
}
