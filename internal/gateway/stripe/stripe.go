// Package stripe implements the payment gateway port for Stripe.
// Charges are opened as payment intents; the buyer finishes them client-side
// with the returned client secret.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
)

const (
	defaultBaseURL     = "https://api.stripe.com"
	defaultTimeout     = 10 * time.Second
	signatureTolerance = 5 * time.Minute

	eventPaymentSucceeded = "payment_intent.succeeded"
	eventPaymentFailed    = "payment_intent.payment_failed"
)

type Config struct {
	SecretKey     string
	WebhookSecret string

	// BaseURL overrides the Stripe API host, for tests.
	BaseURL string
}

type Gateway struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func New(cfg Config, client *http.Client) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Gateway{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}
}

func (g *Gateway) Name() domain.Provider {
	return domain.ProviderStripe
}

func (g *Gateway) Initiate(ctx context.Context, req port.InitiateRequest) (port.InitiateResult, error) {
	// Stripe takes amounts in minor units directly, no conversion needed.
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount.AmountMinor, 10))
	form.Set("currency", strings.ToLower(req.Amount.Currency.String()))
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[order_id]", req.OrderID.String())
	form.Set("metadata[user_id]", req.UserID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return port.InitiateResult{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// The order id is stable across retries of the same checkout, so Stripe
	// deduplicates a re-sent initiate into the same intent.
	httpReq.Header.Set("Idempotency-Key", "order-"+req.OrderID.String())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return port.InitiateResult{}, fmt.Errorf("stripe request failed: %w: %w", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return port.InitiateResult{}, fmt.Errorf("read stripe response: %w: %w", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return port.InitiateResult{}, fmt.Errorf("stripe HTTP %d: %w", resp.StatusCode, domain.ErrGatewayUnavailable)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp struct {
			Error struct {
				Code        string `json:"code"`
				DeclineCode string `json:"decline_code"`
				Message     string `json:"message"`
			} `json:"error"`
		}
		code := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			code = errResp.Error.Code
			if errResp.Error.DeclineCode != "" {
				code = errResp.Error.DeclineCode
			}
		}
		return port.InitiateResult{}, fmt.Errorf("stripe declined[%s]: %w", code, domain.ErrGatewayRejected)
	}

	var intent struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(body, &intent); err != nil {
		return port.InitiateResult{}, fmt.Errorf("unmarshal payment intent: %w", err)
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return port.InitiateResult{}, fmt.Errorf("payment intent response missing id or client_secret")
	}

	return port.InitiateResult{
		ProviderTransactionID: intent.ID,
		ContinuationToken:     intent.ClientSecret,
	}, nil
}

// VerifyConfirmation checks the Stripe-Signature header: HMAC-SHA256 over
// "<timestamp>.<payload>" with the webhook secret, compared in constant time,
// with a freshness window against replayed events.
func (g *Gateway) VerifyConfirmation(payload []byte, signatureHeader string) (port.ConfirmationEvent, error) {
	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return port.ConfirmationEvent{}, fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}

	if g.now().Sub(time.Unix(timestamp, 0)).Abs() > signatureTolerance {
		return port.ConfirmationEvent{}, fmt.Errorf("%w: timestamp outside tolerance", domain.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return port.ConfirmationEvent{}, fmt.Errorf("%w: no matching v1 signature", domain.ErrInvalidSignature)
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID string `json:"id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return port.ConfirmationEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}

	switch event.Type {
	case eventPaymentSucceeded, eventPaymentFailed:
	default:
		return port.ConfirmationEvent{}, fmt.Errorf("type[%s]: %w", event.Type, domain.ErrUnsupportedEvent)
	}

	return port.ConfirmationEvent{
		EventID:               event.ID,
		ProviderTransactionID: event.Data.Object.ID,
		Succeeded:             event.Type == eventPaymentSucceeded,
	}, nil
}

// parseSignatureHeader splits "t=<unix>,v1=<hex>[,v1=<hex>]" into its parts.
func parseSignatureHeader(header string) (timestamp int64, signatures []string, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("signature header is empty")
	}

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("timestamp[%s] is not valid", value)
			}
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("signature header is missing t or v1")
	}

	return timestamp, signatures, nil
}
