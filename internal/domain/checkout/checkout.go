package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GatewayType is the payment-method category for a single checkout attempt.
type GatewayType string

const (
	TypeCreditCard   GatewayType = "credit_card"
	TypeBankTransfer GatewayType = "bank_transfer"
	TypeToken        GatewayType = "token"
	TypeOffsite      GatewayType = "offsite"
)

// CardInput is the raw payment detail captured from the checkout form.
// Validation of required fields happens at the boundary; the orchestrator
// treats the whole struct as optional.
type CardInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	CardNumber      string `json:"card_number"`
	ExpirationMonth string `json:"expiration_month"`
	ExpirationYear  string `json:"expiration_year"`
	CVV             string `json:"cvv"`
	Address1        string `json:"address1"`
	Address2        string `json:"address2"`
	City            string `json:"city"`
	State           string `json:"state"`
	PostalCode      string `json:"postal_code"`
	CountryID       int64  `json:"country_id"`
	TokenBilling    bool   `json:"token_billing"`
}

// Session is the per-attempt transaction context. It is keyed by the
// invitation key, created once per checkout, persisted across the redirect
// round trip, and discarded after completion or abandonment. At most one
// active session exists per checkout.
type Session struct {
	InvitationKey   string       `json:"invitation_key"`
	AccountID       int64        `json:"account_id"`
	InvoiceID       int64        `json:"invoice_id"`
	ClientID        int64        `json:"client_id"`
	ContactID       int64        `json:"contact_id"`
	GatewayConfigID int64        `json:"gateway_config_id"`
	GatewayType     GatewayType  `json:"gateway_type"`
	IdempotencyKey  string       `json:"idempotency_key"`
	PendingRef      string       `json:"pending_ref"`
	Input           *CardInput   `json:"input,omitempty"`
	SourceID        string       `json:"source_id,omitempty"`
	ClientIP        string       `json:"client_ip,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewSession creates a transaction context for one checkout attempt. The
// idempotency key is minted exactly once here and survives for the life of
// the session.
func NewSession(invitationKey string, accountID, invoiceID, clientID, contactID, gatewayConfigID int64, gatewayType GatewayType) (*Session, error) {
	if strings.TrimSpace(invitationKey) == "" {
		return nil, fmt.Errorf("invitation key is required")
	}
	if accountID <= 0 || invoiceID <= 0 {
		return nil, fmt.Errorf("invalid account/invoice: %d/%d", accountID, invoiceID)
	}

	return &Session{
		InvitationKey:   invitationKey,
		AccountID:       accountID,
		InvoiceID:       invoiceID,
		ClientID:        clientID,
		ContactID:       contactID,
		GatewayConfigID: gatewayConfigID,
		GatewayType:     gatewayType,
		IdempotencyKey:  fmt.Sprintf("%d_%s", invoiceID, uuid.NewString()),
		CreatedAt:       time.Now(),
	}, nil
}
