package cardstream

import (
	"context"
	"fmt"

	"payflow/internal/gateway"
	"payflow/internal/gateway/base"

	"github.com/rs/zerolog/log"
)

const (
	sandboxURL    = "https://api.sandbox.cardstream.io"
	productionURL = "https://api.cardstream.io"
)

// Gateway implements the Cardstream direct card API: onsite charges,
// customer/token vaulting, refunds and voids. Cardstream never redirects,
// so it has no completion call, and its transaction reference lives in the
// provider-specific "txid" field.
type Gateway struct {
	httpClient *base.HTTPClient
}

// New creates a Cardstream gateway adapter.
func New() *Gateway {
	return &Gateway{
		httpClient: base.NewHTTPClient("cardstream", 30),
	}
}

// Name returns the provider name.
func (g *Gateway) Name() string {
	return "Cardstream"
}

// SupportedOperations returns the operations Cardstream supports.
func (g *Gateway) SupportedOperations() []gateway.Operation {
	return []gateway.Operation{
		gateway.OpPurchase,
		gateway.OpRefund,
		gateway.OpVoid,
		gateway.OpCreateCustomer,
		gateway.OpCreateToken,
	}
}

// RequiredCredentialFields returns the credentials Cardstream needs.
func (g *Gateway) RequiredCredentialFields() []gateway.CredentialField {
	return []gateway.CredentialField{
		{
			Name:        "api_key",
			DisplayName: "API Key",
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

type chargeResponse struct {
	TxID     string `json:"txid"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Customer string `json:"customer_id"`
	Token    string `json:"token"`
	Card     struct {
		Brand string `json:"brand"`
		Last4 string `json:"last4"`
		Exp   string `json:"exp"`
	} `json:"card"`
}

// Purchase charges a card or stored token in a single call.
func (g *Gateway) Purchase(ctx context.Context, creds gateway.Credentials, req gateway.PurchaseRequest) (*gateway.Response, error) {
	payload := map[string]any{
		"amount":      req.Amount.StringFixed(2),
		"currency":    req.Currency,
		"reference":   req.TransactionID,
		"description": req.Description,
		"client_ip":   req.ClientIP,
	}
	switch {
	case req.Token != "":
		payload["token"] = req.Token
		if req.CustomerRef != "" {
			payload["customer_id"] = req.CustomerRef
		}
	case req.Card != nil:
		payload["card"] = cardPayload(req.Card)
	default:
		return nil, &gateway.Error{
			Code:    gateway.ErrInvalidRequest,
			Message: "purchase requires a card or a token",
		}
	}

	return g.call(ctx, creds, "/v1/charges", payload)
}

// CompletePurchase is not part of the Cardstream flow.
func (g *Gateway) CompletePurchase(ctx context.Context, creds gateway.Credentials, req gateway.PurchaseRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}

// Refund reverses part or all of a settled charge.
func (g *Gateway) Refund(ctx context.Context, creds gateway.Credentials, req gateway.RefundRequest) (*gateway.Response, error) {
	payload := map[string]any{
		"txid":     req.TransactionRef,
		"amount":   req.Amount.StringFixed(2),
		"currency": req.Currency,
	}
	return g.call(ctx, creds, "/v1/refunds", payload)
}

// Void cancels an unsettled charge in full.
func (g *Gateway) Void(ctx context.Context, creds gateway.Credentials, req gateway.VoidRequest) (*gateway.Response, error) {
	payload := map[string]any{"txid": req.TransactionRef}
	return g.call(ctx, creds, "/v1/voids", payload)
}

// CreateCustomer creates a vault customer.
func (g *Gateway) CreateCustomer(ctx context.Context, creds gateway.Credentials, req gateway.CustomerRequest) (*gateway.Response, error) {
	payload := map[string]any{
		"email":       req.Email,
		"name":        req.Name,
		"description": req.Description,
	}
	return g.call(ctx, creds, "/v1/customers", payload)
}

// CreateToken vaults a card against a customer.
func (g *Gateway) CreateToken(ctx context.Context, creds gateway.Credentials, req gateway.TokenRequest) (*gateway.Response, error) {
	if req.Card == nil {
		return nil, &gateway.Error{
			Code:    gateway.ErrInvalidRequest,
			Message: "tokenization requires card details",
		}
	}
	payload := map[string]any{
		"customer_id": req.CustomerRef,
		"card":        cardPayload(req.Card),
	}
	return g.call(ctx, creds, "/v1/tokens", payload)
}

// ParseWebhook is unsupported; Cardstream outcomes are synchronous.
func (g *Gateway) ParseWebhook(body []byte, headers map[string]string, webhookToken string) (gateway.WebhookEvent, error) {
	return gateway.WebhookEvent{}, gateway.ErrUnsupported
}

func (g *Gateway) call(ctx context.Context, creds gateway.Credentials, endpoint string, payload map[string]any) (*gateway.Response, error) {
	apiKey := creds["api_key"]
	if apiKey == "" {
		return nil, &gateway.Error{
			Code:    gateway.ErrInvalidCredentials,
			Message: "cardstream api_key is missing",
		}
	}

	resp, err := g.httpClient.PostJSON(ctx, baseURL(creds)+endpoint, payload, map[string]string{
		"Authorization": "Bearer " + apiKey,
	})
	if err != nil {
		return nil, &gateway.Error{
			Code:        gateway.ErrProviderDown,
			Message:     "cardstream request failed",
			ProviderErr: err.Error(),
		}
	}

	var out chargeResponse
	if err := resp.UnmarshalJSON(&out); err != nil {
		return nil, &gateway.Error{
			Code:        gateway.ErrUnknown,
			Message:     "cardstream returned an unparseable response",
			ProviderErr: err.Error(),
		}
	}

	if !resp.IsSuccess() {
		log.Warn().
			Str("provider", "cardstream").
			Int("status_code", resp.StatusCode).
			Str("message", out.Message).
			Msg("gateway call rejected")
	}

	return &gateway.Response{
		Successful:     resp.IsSuccess() && out.Status == "approved",
		TransactionRef: out.TxID,
		CustomerRef:    out.Customer,
		TokenRef:       out.Token,
		CardBrand:      out.Card.Brand,
		Last4:          out.Card.Last4,
		Expiration:     out.Card.Exp,
		Message:        out.Message,
		Raw:            rawMap(resp),
	}, nil
}

func cardPayload(c *gateway.Card) map[string]any {
	return map[string]any{
		"number":           c.Number,
		"exp_month":        c.ExpiryMonth,
		"exp_year":         c.ExpiryYear,
		"cvv":              c.CVV,
		"holder":           fmt.Sprintf("%s %s", c.FirstName, c.LastName),
		"email":            c.Email,
		"billing_address1": c.BillingAddress1,
		"billing_address2": c.BillingAddress2,
		"billing_city":     c.BillingCity,
		"billing_state":    c.BillingState,
		"billing_zip":      c.BillingPostcode,
		"billing_country":  c.BillingCountry,
	}
}

func baseURL(creds gateway.Credentials) string {
	if creds["environment"] == "production" {
		return productionURL
	}
	return sandboxURL
}

func rawMap(resp *base.HTTPResponse) map[string]any {
	var raw map[string]any
	if err := resp.UnmarshalJSON(&raw); err != nil {
		return nil
	}
	return raw
}
