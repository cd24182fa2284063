package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/gateway"
	"github.com/mahmoudaladin7/E-Commerce/internal/metrics"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
)

// ConfirmationHandler finalizes a payment when the provider's asynchronous
// confirmation arrives.
type ConfirmationHandler struct {
	orders   port.OrderRepository
	gateways *gateway.Registry
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

func NewConfirmation(
	orders port.OrderRepository,
	gateways *gateway.Registry,
	log logrus.FieldLogger,
	m *metrics.Metrics,
) *ConfirmationHandler {
	return &ConfirmationHandler{
		orders:   orders,
		gateways: gateways,
		log:      log,
		metrics:  m,
	}
}

// Handle verifies an inbound confirmation and transitions the payment/order
// pair to its terminal state. Verification fails closed: nothing is mutated
// on a bad signature. Redelivery of a confirmation for an already terminal
// payment is a no-op, providers are expected to redeliver.
func (h *ConfirmationHandler) Handle(ctx context.Context, provider domain.Provider, payload []byte, signatureHeader string) error {
	adapter, err := h.gateways.Resolve(provider)
	if err != nil {
		return fmt.Errorf("gateways.Resolve: %w", err)
	}

	logger := h.log.WithField("provider", provider)

	event, err := adapter.VerifyConfirmation(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			h.metrics.InvalidSignatures.WithLabelValues(provider.String()).Inc()
			logger.WithError(err).Warn("confirmation signature rejected")
			return err
		}
		if errors.Is(err, domain.ErrUnsupportedEvent) {
			logger.WithError(err).Debug("ignoring unsupported confirmation event")
			return nil
		}
		return fmt.Errorf("adapter.VerifyConfirmation: %w", err)
	}

	logger = logger.WithFields(logrus.Fields{
		"event_id":     event.EventID,
		"provider_ref": event.ProviderTransactionID,
	})

	payment, err := h.orders.GetPaymentByProviderRef(ctx, provider, event.ProviderTransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTransaction) {
			h.metrics.Confirmations.WithLabelValues(provider.String(), "unknown").Inc()
			logger.Warn("confirmation for unknown transaction dropped")
		}
		return fmt.Errorf("orders.GetPaymentByProviderRef: %w", err)
	}

	if payment.Status.IsTerminal() {
		h.metrics.Confirmations.WithLabelValues(provider.String(), "redelivered").Inc()
		logger.WithField("status", payment.Status).Debug("payment already terminal, redelivery ignored")
		return nil
	}

	paymentStatus := domain.PaymentStatusSucceeded
	orderStatus := domain.OrderStatusPaid
	result := "succeeded"
	if !event.Succeeded {
		paymentStatus = domain.PaymentStatusFailed
		orderStatus = domain.OrderStatusFailed
		result = "failed"
	}

	if err := h.orders.UpdatePaymentStatus(ctx, payment.OrderID, paymentStatus, orderStatus, ""); err != nil {
		return fmt.Errorf("orders.UpdatePaymentStatus: %w", err)
	}

	h.metrics.Confirmations.WithLabelValues(provider.String(), result).Inc()
	logger.WithField("status", paymentStatus).Info("payment finalized")

	return nil
}
