package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

type Provider string

const (
	ProviderStripe Provider = "STRIPE"
	ProviderPayPal Provider = "PAYPAL"
)

func (p Provider) String() string {
	return string(p)
}

// ParseProvider maps a caller-supplied provider choice to a known provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToUpper(s)) {
	case ProviderStripe:
		return ProviderStripe, nil
	case ProviderPayPal:
		return ProviderPayPal, nil
	default:
		return "", fmt.Errorf("provider[%s]: %w", s, ErrUnknownProvider)
	}
}

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusProviderInitiated PaymentStatus = "PROVIDER_INITIATED"
	PaymentStatusSucceeded         PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

func (s PaymentStatus) String() string {
	return string(s)
}

// Payment is one-to-one with Order and created in the same transaction.
// ProviderRef is empty until the gateway call returns, then immutable.
type Payment struct {
	OrderID     uuid.UUID
	Provider    Provider
	AmountMinor int64
	Currency    currency.Unit
	ProviderRef string
	Status      PaymentStatus
}
