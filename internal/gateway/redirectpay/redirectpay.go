package redirectpay

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"payflow/internal/domain/event"
	"payflow/internal/gateway"
	"payflow/internal/gateway/base"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const (
	sandboxURL    = "https://api.sandbox.redirectpay.net"
	productionURL = "https://api.redirectpay.net"
)

// Gateway implements the RedirectPay hosted-checkout API. Purchases redirect
// the payer to the provider's page; the charge is captured when the payer
// returns, or reported through a webhook.
type Gateway struct {
	httpClient *base.HTTPClient

	mu         sync.Mutex
	tokenCache map[string]*accessToken
}

type accessToken struct {
	Token     string
	ExpiresAt time.Time
}

// New creates a RedirectPay gateway adapter.
func New() *Gateway {
	return &Gateway{
		httpClient: base.NewHTTPClient("redirectpay", 30),
		tokenCache: make(map[string]*accessToken),
	}
}

// Name returns the provider name.
func (g *Gateway) Name() string {
	return "RedirectPay"
}

// SupportedOperations returns the operations RedirectPay supports.
func (g *Gateway) SupportedOperations() []gateway.Operation {
	return []gateway.Operation{
		gateway.OpPurchase,
		gateway.OpCompletePurchase,
		gateway.OpRefund,
		gateway.OpWebhook,
	}
}

// RequiredCredentialFields returns the credentials RedirectPay needs.
func (g *Gateway) RequiredCredentialFields() []gateway.CredentialField {
	return []gateway.CredentialField{
		{
			Name:        "client_id",
			DisplayName: "Client ID",
			Type:        "text",
			Required:    true,
		},
		{
			Name:        "client_secret",
			DisplayName: "Client Secret",
			Type:        "password",
			Required:    true,
		},
		{
			Name:        "environment",
			DisplayName: "Environment",
			Type:        "select",
			Required:    true,
			Options:     []string{"sandbox", "production"},
		},
	}
}

type checkoutResponse struct {
	CheckoutID  string `json:"checkout_id"`
	Status      string `json:"status"`
	ApprovalURL string `json:"approval_url"`
	Message     string `json:"message"`
	Payer       struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// Purchase opens a hosted checkout and returns the approval redirect.
func (g *Gateway) Purchase(ctx context.Context, creds gateway.Credentials, req gateway.PurchaseRequest) (*gateway.Response, error) {
	payload := map[string]any{
		"amount":      req.Amount.StringFixed(2),
		"currency":    req.Currency,
		"reference":   req.TransactionID,
		"description": req.Description,
		"return_url":  req.ReturnURL,
		"cancel_url":  req.CancelURL,
	}

	out, raw, err := g.call(ctx, creds, "/v2/checkouts", payload)
	if err != nil {
		return nil, err
	}

	return &gateway.Response{
		Successful:     out.Status == "completed",
		Redirect:       out.Status == "pending" && out.ApprovalURL != "",
		RedirectURL:    out.ApprovalURL,
		TransactionRef: out.CheckoutID,
		Message:        out.Message,
		Raw:            raw,
	}, nil
}

// CompletePurchase captures a checkout after the payer returns from the
// provider's page.
func (g *Gateway) CompletePurchase(ctx context.Context, creds gateway.Credentials, req gateway.PurchaseRequest) (*gateway.Response, error) {
	if req.Token == "" {
		return nil, &gateway.Error{
			Code:    gateway.ErrInvalidRequest,
			Message: "completion requires the checkout reference",
		}
	}

	endpoint := fmt.Sprintf("/v2/checkouts/%s/capture", req.Token)
	out, raw, err := g.call(ctx, creds, endpoint, map[string]any{})
	if err != nil {
		return nil, err
	}

	return &gateway.Response{
		Successful:     out.Status == "completed",
		Cancelled:      out.Status == "cancelled",
		TransactionRef: out.CheckoutID,
		Email:          out.Payer.Email,
		Message:        out.Message,
		Raw:            raw,
	}, nil
}

// Refund reverses part or all of a captured checkout.
func (g *Gateway) Refund(ctx context.Context, creds gateway.Credentials, req gateway.RefundRequest) (*gateway.Response, error) {
	payload := map[string]any{
		"checkout_id": req.TransactionRef,
		"amount":      req.Amount.StringFixed(2),
		"currency":    req.Currency,
	}
	out, raw, err := g.call(ctx, creds, "/v2/refunds", payload)
	if err != nil {
		return nil, err
	}

	return &gateway.Response{
		Successful:     out.Status == "completed",
		TransactionRef: out.CheckoutID,
		Message:        out.Message,
		Raw:            raw,
	}, nil
}

// Void is not offered by RedirectPay; captures settle immediately.
func (g *Gateway) Void(ctx context.Context, creds gateway.Credentials, req gateway.VoidRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}

// CreateCustomer is not offered by RedirectPay.
func (g *Gateway) CreateCustomer(ctx context.Context, creds gateway.Credentials, req gateway.CustomerRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}

// CreateToken is not offered by RedirectPay.
func (g *Gateway) CreateToken(ctx context.Context, creds gateway.Credentials, req gateway.TokenRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}

type webhookPayload struct {
	EventType  string `json:"event_type"`
	CheckoutID string `json:"checkout_id"`
}

// ParseWebhook validates the shared webhook token and normalizes the
// notification into a gateway event.
func (g *Gateway) ParseWebhook(body []byte, headers map[string]string, webhookToken string) (gateway.WebhookEvent, error) {
	got := headers["X-Rp-Webhook-Token"]
	if webhookToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(webhookToken)) != 1 {
		return gateway.WebhookEvent{}, &gateway.Error{
			Code:    gateway.ErrInvalidCredentials,
			Message: "webhook token mismatch",
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return gateway.WebhookEvent{}, &gateway.Error{
			Code:        gateway.ErrInvalidRequest,
			Message:     "unparseable webhook payload",
			ProviderErr: err.Error(),
		}
	}
	if payload.CheckoutID == "" {
		return gateway.WebhookEvent{}, &gateway.Error{
			Code:    gateway.ErrInvalidRequest,
			Message: "webhook payload missing checkout_id",
		}
	}

	var kind event.Kind
	switch payload.EventType {
	case "checkout.completed":
		kind = event.KindPurchaseCompleted
	case "checkout.failed", "checkout.expired":
		kind = event.KindPurchaseFailed
	case "refund.completed":
		kind = event.KindRefundCompleted
	default:
		return gateway.WebhookEvent{}, gateway.ErrUnsupported
	}

	return gateway.WebhookEvent{
		Kind:           kind,
		TransactionRef: payload.CheckoutID,
		Raw:            body,
	}, nil
}

func (g *Gateway) call(ctx context.Context, creds gateway.Credentials, endpoint string, payload map[string]any) (*checkoutResponse, map[string]any, error) {
	token, err := g.getAccessToken(ctx, creds)
	if err != nil {
		return nil, nil, err
	}

	resp, err := g.httpClient.PostJSON(ctx, baseURL(creds)+endpoint, payload, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return nil, nil, &gateway.Error{
			Code:        gateway.ErrProviderDown,
			Message:     "redirectpay request failed",
			ProviderErr: err.Error(),
		}
	}

	var out checkoutResponse
	if err := resp.UnmarshalJSON(&out); err != nil {
		return nil, nil, &gateway.Error{
			Code:        gateway.ErrUnknown,
			Message:     "redirectpay returned an unparseable response",
			ProviderErr: err.Error(),
		}
	}

	var raw map[string]any
	_ = resp.UnmarshalJSON(&raw)
	return &out, raw, nil
}

// getAccessToken returns a cached OAuth token or fetches a fresh one. The
// token endpoint is idempotent, so transient failures are retried with
// exponential backoff; purchase calls never are.
func (g *Gateway) getAccessToken(ctx context.Context, creds gateway.Credentials) (string, error) {
	clientID := creds["client_id"]
	clientSecret := creds["client_secret"]
	if clientID == "" || clientSecret == "" {
		return "", &gateway.Error{
			Code:    gateway.ErrInvalidCredentials,
			Message: "redirectpay client_id/client_secret are missing",
		}
	}

	g.mu.Lock()
	if tok, ok := g.tokenCache[clientID]; ok && time.Now().Before(tok.ExpiresAt) {
		g.mu.Unlock()
		return tok.Token, nil
	}
	g.mu.Unlock()

	basic := base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
	tokenURL := baseURL(creds) + "/v2/oauth/token"

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	err := backoff.Retry(func() error {
		resp, err := g.httpClient.PostJSON(ctx, tokenURL,
			map[string]any{"grant_type": "client_credentials"},
			map[string]string{"Authorization": "Basic " + basic},
		)
		if err != nil {
			return err
		}
		if resp.StatusCode == 401 || resp.StatusCode == 403 {
			return backoff.Permanent(fmt.Errorf("token request rejected: %s", resp.String()))
		}
		if !resp.IsSuccess() {
			return fmt.Errorf("token request failed with status %d", resp.StatusCode)
		}
		return resp.UnmarshalJSON(&out)
	}, policy)
	if err != nil {
		return "", &gateway.Error{
			Code:        gateway.ErrInvalidCredentials,
			Message:     "redirectpay token fetch failed",
			ProviderErr: err.Error(),
		}
	}

	expiry := time.Now().Add(time.Duration(out.ExpiresIn) * time.Second).Add(-time.Minute)
	g.mu.Lock()
	g.tokenCache[clientID] = &accessToken{Token: out.AccessToken, ExpiresAt: expiry}
	g.mu.Unlock()

	log.Debug().Str("provider", "redirectpay").Msg("refreshed OAuth access token")
	return out.AccessToken, nil
}

func baseURL(creds gateway.Credentials) string {
	if creds["environment"] == "production" {
		return productionURL
	}
	return sandboxURL
}
