package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
)

// InitiateRequest carries everything a provider needs to open a transaction.
type InitiateRequest struct {
	OrderID uuid.UUID
	UserID  string
	Amount  domain.Money

	// Continuation hints for redirect-based providers.
	ReturnURL string
	CancelURL string
}

// InitiateResult is the provider-side handle of a freshly opened transaction.
// ContinuationToken is provider-shaped: a client secret for providers that
// finish the charge client-side, a redirect URL for browser-redirect flows.
type InitiateResult struct {
	ProviderTransactionID string
	ContinuationToken     string
}

// ConfirmationEvent is an authenticated asynchronous message from a provider
// reporting the outcome of a previously initiated transaction.
type ConfirmationEvent struct {
	EventID               string
	ProviderTransactionID string
	Succeeded             bool
}

// Gateway wraps one external payment provider behind a uniform interface.
type Gateway interface {
	Name() domain.Provider

	// Initiate opens a charge/authorization with the provider. Fails with
	// domain.ErrGatewayUnavailable on network/5xx errors and
	// domain.ErrGatewayRejected on 4xx/validation errors.
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)

	// VerifyConfirmation authenticates an inbound confirmation message.
	// Fails with domain.ErrInvalidSignature on tampered or unsigned payloads
	// and domain.ErrUnsupportedEvent for authentic events this system ignores.
	VerifyConfirmation(payload []byte, signatureHeader string) (ConfirmationEvent, error)
}
