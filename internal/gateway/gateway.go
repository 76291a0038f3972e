package gateway

import (
	"context"

	"payflow/internal/domain/event"

	"github.com/shopspring/decimal"
)

// ProviderType identifies a gateway implementation.
type ProviderType string

const (
	ProviderCardstream  ProviderType = "cardstream"
	ProviderRedirectPay ProviderType = "redirectpay"
)

// Operation is a capability a gateway may support. The orchestrator checks
// capabilities instead of assuming every provider implements every call.
type Operation string

const (
	OpPurchase         Operation = "purchase"
	OpCompletePurchase Operation = "complete_purchase"
	OpRefund           Operation = "refund"
	OpVoid             Operation = "void"
	OpCreateCustomer   Operation = "create_customer"
	OpCreateToken      Operation = "create_token"
	OpWebhook          Operation = "webhook"
)

// Credentials are the decrypted provider credentials for one gateway config.
type Credentials map[string]string

// CredentialField describes one credential a provider needs at setup time.
type CredentialField struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Type        string   `json:"type"` // text, password, select
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
}

// Card is the canonical card/bank detail structure passed to adapters.
// Billing and shipping mirror the single address on file.
type Card struct {
	Company   string
	FirstName string
	LastName  string
	Email     string
	Phone     string

	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string

	RoutingNumber string
	AccountNumber string

	BillingAddress1  string
	BillingAddress2  string
	BillingCity      string
	BillingState     string
	BillingPostcode  string
	BillingCountry   string
	ShippingAddress1 string
	ShippingAddress2 string
	ShippingCity     string
	ShippingState    string
	ShippingPostcode string
	ShippingCountry  string
}

// PurchaseRequest is the canonical request for Purchase and CompletePurchase.
// Exactly one of Token or Card carries the payment source; CustomerRef is set
// when the provider bills against a stored customer.
type PurchaseRequest struct {
	Amount        decimal.Decimal
	Currency      string
	ReturnURL     string
	CancelURL     string
	Description   string
	TransactionID string
	ClientIP      string

	Token       string
	CustomerRef string
	Card        *Card
}

// RefundRequest reverses all or part of a prior charge.
type RefundRequest struct {
	TransactionRef string
	Amount         decimal.Decimal
	Currency       string
}

// VoidRequest cancels an unsettled charge in full.
type VoidRequest struct {
	TransactionRef string
}

// CustomerRequest creates a gateway-side customer record.
type CustomerRequest struct {
	Email       string
	Name        string
	Description string
}

// TokenRequest tokenizes a payment source, optionally attached to a
// gateway-side customer.
type TokenRequest struct {
	CustomerRef string
	Card        *Card
}

// Response is the normalized result of any gateway call. Ephemeral: it is
// folded into a Payment or an error and never persisted as-is.
type Response struct {
	Successful  bool
	Redirect    bool
	Cancelled   bool
	RedirectURL string

	TransactionRef string
	CustomerRef    string
	TokenRef       string

	CardBrand     string
	Last4         string
	Expiration    string
	RoutingNumber string
	BankName      string
	Email         string

	Message string
	Raw     map[string]any
}

// WebhookEvent is a provider notification normalized by ParseWebhook.
type WebhookEvent struct {
	Kind           event.Kind
	TransactionRef string
	Raw            []byte
}

// Gateway is the uniform capability contract one external payment provider
// implements. All calls are blocking and synchronous; the orchestrator never
// retries them on its own.
type Gateway interface {
	Name() string
	SupportedOperations() []Operation
	RequiredCredentialFields() []CredentialField

	Purchase(ctx context.Context, creds Credentials, req PurchaseRequest) (*Response, error)
	CompletePurchase(ctx context.Context, creds Credentials, req PurchaseRequest) (*Response, error)
	Refund(ctx context.Context, creds Credentials, req RefundRequest) (*Response, error)
	Void(ctx context.Context, creds Credentials, req VoidRequest) (*Response, error)
	CreateCustomer(ctx context.Context, creds Credentials, req CustomerRequest) (*Response, error)
	CreateToken(ctx context.Context, creds Credentials, req TokenRequest) (*Response, error)

	// ParseWebhook validates and normalizes a provider notification.
	// Gateways without webhook support return ErrUnsupported.
	ParseWebhook(body []byte, headers map[string]string, webhookToken string) (WebhookEvent, error)
}

// Supports reports whether a gateway implements the given operation.
func Supports(g Gateway, op Operation) bool {
	for _, o := range g.SupportedOperations() {
		if o == op {
			return true
		}
	}
	return false
}
