package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
)

// OrderRepository is the transactional store boundary for orders and their
// payments.
type OrderRepository interface {
	// CreateOrderWithPayment persists the order, all line items and the payment
	// in one atomic unit. No partial state is ever visible.
	CreateOrderWithPayment(ctx context.Context, order domain.Order, items []domain.OrderLineItem, payment domain.Payment) (domain.Order, error)

	// UpdatePaymentStatus transitions the payment and its order together in one
	// atomic unit. Re-applying an identical terminal status is a no-op, and a
	// terminal status is never overwritten by a different one. providerRef is
	// set only while still unset; pass "" to leave it untouched.
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, paymentStatus domain.PaymentStatus, orderStatus domain.OrderStatus, providerRef string) error

	// GetPaymentByProviderRef correlates an inbound confirmation with a local
	// payment. Returns domain.ErrUnknownTransaction when nothing matches.
	GetPaymentByProviderRef(ctx context.Context, provider domain.Provider, providerRef string) (domain.Payment, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
}
