// Package metrics exposes the counters operators need to watch the
// checkout/payment pipeline, most importantly rejected confirmation
// signatures, which must never fail silently.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CheckoutsStarted  *prometheus.CounterVec
	Confirmations     *prometheus.CounterVec
	InvalidSignatures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CheckoutsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_started_total",
			Help: "Checkout attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_confirmations_total",
			Help: "Gateway confirmations by provider and result.",
		}, []string{"provider", "result"}),
		InvalidSignatures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "confirmation_invalid_signatures_total",
			Help: "Confirmations dropped because signature verification failed.",
		}, []string{"provider"}),
	}
}
