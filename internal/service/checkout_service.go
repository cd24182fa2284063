// Package service holds the checkout orchestration and the confirmation
// handling that reconciles local payments with provider transactions.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/gateway"
	"github.com/mahmoudaladin7/E-Commerce/internal/metrics"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
)

const (
	compensateAttempts = 3
	compensateBackoff  = 100 * time.Millisecond
)

// ContinuationHints carries the redirect URLs redirect-based providers need.
type ContinuationHints struct {
	ReturnURL string
	CancelURL string
}

// CheckoutResult is what the buyer's client needs to finish the payment.
type CheckoutResult struct {
	Provider          domain.Provider
	OrderID           uuid.UUID
	ContinuationToken string
}

type CheckoutService struct {
	cart     port.CartReader
	orders   port.OrderRepository
	gateways *gateway.Registry
	log      logrus.FieldLogger
	metrics  *metrics.Metrics

	// inflight serializes checkouts per user: a double-submitted checkout
	// joins the in-flight one instead of creating a second order.
	inflight singleflight.Group
}

func NewCheckout(
	cart port.CartReader,
	orders port.OrderRepository,
	gateways *gateway.Registry,
	log logrus.FieldLogger,
	m *metrics.Metrics,
) *CheckoutService {
	return &CheckoutService{
		cart:     cart,
		orders:   orders,
		gateways: gateways,
		log:      log,
		metrics:  m,
	}
}

// StartCheckout converts the user's cart into an order, its line-item
// snapshot and a payment, then opens a transaction with the chosen provider.
// The store write and the provider call deliberately sit on opposite sides of
// the transaction boundary: a network round-trip must not run under a
// database lock. The PENDING/PENDING_PAYMENT window in between is an expected
// transient state resolved either by the provider reference persist or by the
// compensating failure update.
func (s *CheckoutService) StartCheckout(
	ctx context.Context,
	userID string,
	provider domain.Provider,
	hints ContinuationHints,
) (CheckoutResult, error) {
	if userID == "" {
		return CheckoutResult{}, fmt.Errorf("userID is empty")
	}

	adapter, err := s.gateways.Resolve(provider)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("gateways.Resolve: %w", err)
	}

	v, err, _ := s.inflight.Do(userID, func() (any, error) {
		return s.startCheckout(ctx, userID, adapter, hints)
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	return v.(CheckoutResult), nil
}

func (s *CheckoutService) startCheckout(
	ctx context.Context,
	userID string,
	adapter port.Gateway,
	hints ContinuationHints,
) (CheckoutResult, error) {
	provider := adapter.Name()

	snapshot, err := s.cart.GetCartSummary(ctx, userID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("cart.GetCartSummary: %w", err)
	}
	// Precondition check before any write: an empty or inconsistent cart
	// leaves zero persisted rows behind.
	if err := snapshot.Validate(); err != nil {
		s.metrics.CheckoutsStarted.WithLabelValues(provider.String(), "rejected").Inc()
		return CheckoutResult{}, err
	}

	cur := snapshot.CurrencyUnit()
	order := domain.Order{
		ID:         uuid.New(),
		UserID:     userID,
		TotalMinor: snapshot.SubtotalMinor(),
		Currency:   cur,
		Status:     domain.OrderStatusPendingPayment,
	}

	items := make([]domain.OrderLineItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, domain.OrderLineItem{
			OrderID:            order.ID,
			ProductID:          line.ProductID,
			NameSnapshot:       line.Name,
			PriceMinorSnapshot: line.UnitPrice.AmountMinor,
			Quantity:           line.Quantity,
		})
	}

	payment := domain.Payment{
		OrderID:     order.ID,
		Provider:    provider,
		AmountMinor: order.TotalMinor,
		Currency:    cur,
		Status:      domain.PaymentStatusPending,
	}

	order, err = s.orders.CreateOrderWithPayment(ctx, order, items, payment)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("orders.CreateOrderWithPayment: %w", err)
	}

	logger := s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"provider": provider,
	})

	result, err := adapter.Initiate(ctx, port.InitiateRequest{
		OrderID:   order.ID,
		UserID:    userID,
		Amount:    domain.Money{AmountMinor: order.TotalMinor, Currency: cur},
		ReturnURL: hints.ReturnURL,
		CancelURL: hints.CancelURL,
	})
	if err != nil {
		logger.WithError(err).Warn("gateway initiate failed, failing order")
		s.failOrder(ctx, logger, order.ID)
		s.metrics.CheckoutsStarted.WithLabelValues(provider.String(), "failed").Inc()
		return CheckoutResult{}, fmt.Errorf("adapter.Initiate: %w", err)
	}

	err = s.orders.UpdatePaymentStatus(ctx, order.ID,
		domain.PaymentStatusProviderInitiated, domain.OrderStatusPendingPayment, result.ProviderTransactionID)
	if err != nil {
		// The provider has a transaction we could not record. Treat it like a
		// gateway failure so the pair is not left dangling; the provider-side
		// transaction stays unconfirmed and expires there.
		logger.WithError(err).Error("persisting provider reference failed, failing order")
		s.failOrder(ctx, logger, order.ID)
		s.metrics.CheckoutsStarted.WithLabelValues(provider.String(), "failed").Inc()
		return CheckoutResult{}, fmt.Errorf("orders.UpdatePaymentStatus: %w", err)
	}

	logger.WithField("provider_ref", result.ProviderTransactionID).Info("checkout initiated")
	s.metrics.CheckoutsStarted.WithLabelValues(provider.String(), "initiated").Inc()

	return CheckoutResult{
		Provider:          provider,
		OrderID:           order.ID,
		ContinuationToken: result.ContinuationToken,
	}, nil
}

// failOrder runs the compensating FAILED/FAILED update after a known gateway
// failure. It retries, because leaving the pair stuck in a pending state after
// a known failure is a data-integrity defect, and it survives caller
// cancellation for the same reason.
func (s *CheckoutService) failOrder(ctx context.Context, logger logrus.FieldLogger, orderID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= compensateAttempts; attempt++ {
		err = s.orders.UpdatePaymentStatus(ctx, orderID,
			domain.PaymentStatusFailed, domain.OrderStatusFailed, "")
		if err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * compensateBackoff)
	}

	logger.WithError(err).Error("compensating update failed, payment left pending for reconciliation")
}
