package domain

import "errors"

var (
	// ErrEmptyCart rejects a checkout before any write happens.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrMixedCurrencies rejects a cart whose lines do not share one currency.
	ErrMixedCurrencies = errors.New("cart lines have mixed currencies")

	ErrInvalidQuantity = errors.New("cart line quantity must be positive")

	// ErrGatewayRejected means the provider declined the charge (4xx or a
	// validation error). Not retryable, surfaced to the buyer.
	ErrGatewayRejected = errors.New("payment provider rejected the transaction")

	// ErrGatewayUnavailable means a network error or provider outage (5xx/429).
	// Retryable by the caller.
	ErrGatewayUnavailable = errors.New("payment provider unavailable")

	// ErrInvalidSignature means an inbound confirmation failed authenticity
	// verification. Processing stops with no state change; the condition is
	// counted and logged rather than silently ignored.
	ErrInvalidSignature = errors.New("confirmation signature verification failed")

	// ErrUnsupportedEvent means an authentic confirmation carries an event type
	// this system does not act on. Acknowledged and dropped.
	ErrUnsupportedEvent = errors.New("unsupported confirmation event type")

	// ErrUnknownTransaction means a confirmation references a provider
	// transaction no local payment matches.
	ErrUnknownTransaction = errors.New("no payment matches the provider reference")

	ErrUnknownProvider = errors.New("unknown payment provider")

	ErrOrderNotFound = errors.New("order not found")
)
