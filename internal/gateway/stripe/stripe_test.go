package stripe_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/gateway/stripe"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
)

const webhookSecret = "whsec_test"

func signHeader(t *testing.T, secret string, timestamp int64, payload []byte) string {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func initiateRequest() port.InitiateRequest {
	return port.InitiateRequest{
		OrderID: uuid.New(),
		UserID:  uuid.NewString(),
		Amount:  domain.Money{AmountMinor: 1000, Currency: currency.USD},
	}
}

func TestInitiate(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantError error
		wantRef   string
		wantToken string
	}{
		{
			name: "payment intent created: ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "1000", r.PostForm.Get("amount"))
				assert.Equal(t, "usd", r.PostForm.Get("currency"))
				assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
				assert.NotEmpty(t, r.PostForm.Get("metadata[order_id]"))

				fmt.Fprint(w, `{"id": "pi_1", "client_secret": "pi_1_secret"}`)
			},
			wantRef:   "pi_1",
			wantToken: "pi_1_secret",
		},
		{
			name: "card declined: rejected",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				fmt.Fprint(w, `{"error": {"code": "card_declined", "decline_code": "insufficient_funds", "message": "declined"}}`)
			},
			wantError: domain.ErrGatewayRejected,
		},
		{
			name: "server error: unavailable",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantError: domain.ErrGatewayUnavailable,
		},
		{
			name: "rate limited: unavailable",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantError: domain.ErrGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := stripe.New(stripe.Config{SecretKey: "sk_test", BaseURL: srv.URL}, srv.Client())

			result, err := g.Initiate(t.Context(), initiateRequest())
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRef, result.ProviderTransactionID)
			assert.Equal(t, tt.wantToken, result.ContinuationToken)
		})
	}
}

func TestInitiateNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from now on

	g := stripe.New(stripe.Config{SecretKey: "sk_test", BaseURL: srv.URL}, nil)

	_, err := g.Initiate(t.Context(), initiateRequest())
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestVerifyConfirmation(t *testing.T) {
	payload := []byte(`{"id": "evt_1", "type": "payment_intent.succeeded", "data": {"object": {"id": "pi_1"}}}`)
	now := time.Now().Unix()

	g := stripe.New(stripe.Config{SecretKey: "sk_test", WebhookSecret: webhookSecret}, nil)

	tests := []struct {
		name      string
		payload   []byte
		header    string
		wantError error
		wantEvent port.ConfirmationEvent
	}{
		{
			name:    "valid signature: ok",
			payload: payload,
			header:  signHeader(t, webhookSecret, now, payload),
			wantEvent: port.ConfirmationEvent{
				EventID:               "evt_1",
				ProviderTransactionID: "pi_1",
				Succeeded:             true,
			},
		},
		{
			name:      "tampered payload: invalid signature",
			payload:   []byte(`{"id": "evt_1", "type": "payment_intent.succeeded", "data": {"object": {"id": "pi_EVIL"}}}`),
			header:    signHeader(t, webhookSecret, now, payload),
			wantError: domain.ErrInvalidSignature,
		},
		{
			name:      "wrong secret: invalid signature",
			payload:   payload,
			header:    signHeader(t, "whsec_other", now, payload),
			wantError: domain.ErrInvalidSignature,
		},
		{
			name:      "stale timestamp: invalid signature",
			payload:   payload,
			header:    signHeader(t, webhookSecret, now-3600, payload),
			wantError: domain.ErrInvalidSignature,
		},
		{
			name:      "missing header: invalid signature",
			payload:   payload,
			header:    "",
			wantError: domain.ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := g.VerifyConfirmation(tt.payload, tt.header)
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEvent, event)
		})
	}
}

func TestVerifyConfirmationEventTypes(t *testing.T) {
	g := stripe.New(stripe.Config{WebhookSecret: webhookSecret}, nil)
	now := time.Now().Unix()

	failed := []byte(`{"id": "evt_2", "type": "payment_intent.payment_failed", "data": {"object": {"id": "pi_2"}}}`)
	event, err := g.VerifyConfirmation(failed, signHeader(t, webhookSecret, now, failed))
	require.NoError(t, err)
	assert.False(t, event.Succeeded)
	assert.Equal(t, "pi_2", event.ProviderTransactionID)

	unrelated := []byte(`{"id": "evt_3", "type": "charge.updated", "data": {"object": {"id": "ch_1"}}}`)
	_, err = g.VerifyConfirmation(unrelated, signHeader(t, webhookSecret, now, unrelated))
	require.ErrorIs(t, err, domain.ErrUnsupportedEvent)
}

func TestSignatureHeaderToleratesExtraSignatures(t *testing.T) {
	g := stripe.New(stripe.Config{WebhookSecret: webhookSecret}, nil)

	payload := []byte(`{"id": "evt_1", "type": "payment_intent.succeeded", "data": {"object": {"id": "pi_1"}}}`)
	now := time.Now().Unix()

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", now, payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	// Stripe sends multiple v1 entries during secret rollover.
	header := "t=" + strconv.FormatInt(now, 10) + ",v1=" + hex.EncodeToString(make([]byte, 32)) + ",v1=" + valid

	_, err := g.VerifyConfirmation(payload, header)
	require.NoError(t, err)
}
