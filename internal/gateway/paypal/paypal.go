// Package paypal implements the payment gateway port for PayPal.
// The buyer finishes the charge through the approval redirect URL, so the
// continuation token here is a link, not a client secret.
package paypal

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
)

const (
	defaultBaseURL = "https://api-m.sandbox.paypal.com"
	defaultTimeout = 10 * time.Second

	eventOrderApproved = "CHECKOUT.ORDER.APPROVED"
	eventOrderVoided   = "CHECKOUT.ORDER.VOIDED"
)

type Config struct {
	ClientID      string
	ClientSecret  string
	WebhookSecret string

	// BaseURL overrides the PayPal API host, for tests.
	BaseURL string
}

type Gateway struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config, client *http.Client) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Gateway{cfg: cfg, client: client}
}

func (g *Gateway) Name() domain.Provider {
	return domain.ProviderPayPal
}

func (g *Gateway) Initiate(ctx context.Context, req port.InitiateRequest) (port.InitiateResult, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return port.InitiateResult{}, fmt.Errorf("accessToken: %w", err)
	}

	// PayPal takes decimal major units; Money does the exact conversion.
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.OrderID.String(),
			"amount": map[string]string{
				"currency_code": req.Amount.Currency.String(),
				"value":         req.Amount.MajorUnitsString(),
			},
		}},
		"application_context": map[string]string{
			"return_url": req.ReturnURL,
			"cancel_url": req.CancelURL,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return port.InitiateResult{}, fmt.Errorf("json.Marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return port.InitiateResult{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("PayPal-Request-Id", "order-"+req.OrderID.String())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return port.InitiateResult{}, fmt.Errorf("paypal request failed: %w: %w", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return port.InitiateResult{}, fmt.Errorf("read paypal response: %w: %w", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return port.InitiateResult{}, fmt.Errorf("paypal HTTP %d: %w", resp.StatusCode, domain.ErrGatewayUnavailable)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var errResp struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		reason := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Name != "" {
			reason = errResp.Name
		}
		return port.InitiateResult{}, fmt.Errorf("paypal declined[%s]: %w", reason, domain.ErrGatewayRejected)
	}

	var order struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.Unmarshal(respBody, &order); err != nil {
		return port.InitiateResult{}, fmt.Errorf("unmarshal order: %w", err)
	}

	var approvalURL string
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
			break
		}
	}
	if order.ID == "" || approvalURL == "" {
		return port.InitiateResult{}, fmt.Errorf("order response missing id or approve link: %w", domain.ErrGatewayUnavailable)
	}

	return port.InitiateResult{
		ProviderTransactionID: order.ID,
		ContinuationToken:     approvalURL,
	}, nil
}

func (g *Gateway) accessToken(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	httpReq.SetBasicAuth(g.cfg.ClientID, g.cfg.ClientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w: %w", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("token HTTP %d: %w", resp.StatusCode, domain.ErrGatewayUnavailable)
		}
		return "", fmt.Errorf("token HTTP %d: %w", resp.StatusCode, domain.ErrGatewayRejected)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	return tokenResp.AccessToken, nil
}

// VerifyConfirmation authenticates a webhook delivery with an HMAC-SHA256 of
// the raw body under the configured webhook secret, compared in constant time.
func (g *Gateway) VerifyConfirmation(payload []byte, signatureHeader string) (port.ConfirmationEvent, error) {
	if signatureHeader == "" {
		return port.ConfirmationEvent{}, fmt.Errorf("%w: signature header is empty", domain.ErrInvalidSignature)
	}

	decoded, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return port.ConfirmationEvent{}, fmt.Errorf("%w: signature is not valid hex", domain.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write(payload)
	if !hmac.Equal(decoded, mac.Sum(nil)) {
		return port.ConfirmationEvent{}, fmt.Errorf("%w: signature mismatch", domain.ErrInvalidSignature)
	}

	var event struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		Resource  struct {
			ID string `json:"id"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return port.ConfirmationEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}

	switch event.EventType {
	case eventOrderApproved, eventOrderVoided:
	default:
		return port.ConfirmationEvent{}, fmt.Errorf("event_type[%s]: %w", event.EventType, domain.ErrUnsupportedEvent)
	}

	return port.ConfirmationEvent{
		EventID:               event.ID,
		ProviderTransactionID: event.Resource.ID,
		Succeeded:             event.EventType == eventOrderApproved,
	}, nil
}
