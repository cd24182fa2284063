// Package httpapi is the thin transport layer: it maps HTTP requests to the
// checkout orchestrator and confirmation handler and error kinds to status
// codes. No business rules live here.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
	"github.com/mahmoudaladin7/E-Commerce/internal/service"
)

// userIDHeader carries the authenticated user id set by the auth layer in
// front of this service. Authentication itself is not this service's job.
const userIDHeader = "X-User-ID"

const maxWebhookBody = 1 << 20

type CheckoutStarter interface {
	StartCheckout(ctx context.Context, userID string, provider domain.Provider, hints service.ContinuationHints) (service.CheckoutResult, error)
}

type ConfirmationProcessor interface {
	Handle(ctx context.Context, provider domain.Provider, payload []byte, signatureHeader string) error
}

type Server struct {
	checkout      CheckoutStarter
	confirmations ConfirmationProcessor
	orders        port.OrderRepository
	log           logrus.FieldLogger
}

func NewServer(checkout CheckoutStarter, confirmations ConfirmationProcessor, orders port.OrderRepository, log logrus.FieldLogger) *Server {
	return &Server{
		checkout:      checkout,
		confirmations: confirmations,
		orders:        orders,
		log:           log,
	}
}

func (s *Server) Router(gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/checkout", s.handleCheckout)
	r.Post("/webhooks/{provider}", s.handleWebhook)
	r.Get("/orders/{id}", s.handleGetOrder)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

type checkoutRequest struct {
	Provider  string `json:"provider"`
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type checkoutResponse struct {
	Provider          string `json:"provider"`
	OrderID           string `json:"order_id"`
	ContinuationToken string `json:"continuation_token"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.checkout.StartCheckout(r.Context(), userID, provider, service.ContinuationHints{
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	})
	if err != nil {
		s.writeCheckoutError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Provider:          result.Provider.String(),
		OrderID:           result.OrderID.String(),
		ContinuationToken: result.ContinuationToken,
	})
}

func (s *Server) writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrMixedCurrencies),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, errorReason(err))
	case errors.Is(err, domain.ErrGatewayRejected):
		writeError(w, http.StatusPaymentRequired, errorReason(err))
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, errorReason(err))
	default:
		s.log.WithError(err).Error("checkout failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider, err := domain.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, errorReason(err))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = s.confirmations.Handle(r.Context(), provider, payload, r.Header.Get(signatureHeader(provider)))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, domain.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, errorReason(err))
	case errors.Is(err, domain.ErrUnknownTransaction):
		// Already logged by the handler; ack so the provider stops
		// redelivering an event we can never match.
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	default:
		s.log.WithError(err).Error("confirmation processing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type orderResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TotalMinor int64     `json:"total_minor"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := s.orders.GetOrder(r.Context(), orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, errorReason(err))
		return
	}
	if err != nil {
		s.log.WithError(err).Error("get order failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		ID:         order.ID.String(),
		UserID:     order.UserID,
		TotalMinor: order.TotalMinor,
		Currency:   order.Currency.String(),
		Status:     order.Status.String(),
		CreatedAt:  order.CreatedAt,
	})
}

func signatureHeader(provider domain.Provider) string {
	switch provider {
	case domain.ProviderPayPal:
		return "Paypal-Transmission-Sig"
	default:
		return "Stripe-Signature"
	}
}

// errorReason surfaces the sentinel's message without internal call chains.
func errorReason(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"error": reason})
}
