package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
)

// WithBreaker wraps a gateway's Initiate call in a circuit breaker so a
// provider outage fails fast instead of tying up checkout requests.
// VerifyConfirmation is purely local and bypasses the breaker.
func WithBreaker(inner port.Gateway) port.Gateway {
	settings := gobreaker.Settings{
		Name:    inner.Name().String(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A provider decline is a healthy provider saying no; only
		// availability problems should trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrGatewayRejected)
		},
	}

	return &breakerGateway{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[port.InitiateResult](settings),
	}
}

type breakerGateway struct {
	inner port.Gateway
	cb    *gobreaker.CircuitBreaker[port.InitiateResult]
}

func (g *breakerGateway) Name() domain.Provider {
	return g.inner.Name()
}

func (g *breakerGateway) Initiate(ctx context.Context, req port.InitiateRequest) (port.InitiateResult, error) {
	result, err := g.cb.Execute(func() (port.InitiateResult, error) {
		return g.inner.Initiate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return port.InitiateResult{}, fmt.Errorf("circuit breaker open: %w", domain.ErrGatewayUnavailable)
	}
	return result, err
}

func (g *breakerGateway) VerifyConfirmation(payload []byte, signatureHeader string) (port.ConfirmationEvent, error) {
	return g.inner.VerifyConfirmation(payload, signatureHeader)
}
