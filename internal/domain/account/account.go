package account

import (
	"fmt"
	"strings"
	"time"
)

// Account is a merchant account. Payments, customers, and gateway configs
// are all scoped to it; the transaction-reference dedup guard runs at this
// scope, never per client.
type Account struct {
	ID     int64
	Name   string
	Status Status
}

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// NewAccount creates a merchant account with validation.
func NewAccount(name string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if len(name) < 2 || len(name) > 100 {
		return nil, fmt.Errorf("account name must be between 2 and 100 characters")
	}
	return &Account{Name: name, Status: StatusActive}, nil
}

// IsActive reports whether the account can transact.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// APIKey authenticates API callers for an account. Only the hash is stored.
type APIKey struct {
	ID        int64
	AccountID int64
	Name      string
	KeyHash   string
	IsActive  bool
}

// NewAPIKey creates an API key record with validation.
func NewAPIKey(accountID int64, name, keyHash string) (*APIKey, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("invalid account ID: %d", accountID)
	}
	if keyHash == "" {
		return nil, fmt.Errorf("key hash is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "default"
	}
	return &APIKey{AccountID: accountID, Name: name, KeyHash: keyHash, IsActive: true}, nil
}

// TokenBillingMode controls when a checkout mints a reusable payment token.
type TokenBillingMode string

const (
	TokenBillingDisabled TokenBillingMode = "disabled"
	TokenBillingOptIn    TokenBillingMode = "opt_in"
	TokenBillingAlways   TokenBillingMode = "always"
)

// GatewayConfig identifies which external gateway and gateway-side account a
// checkout runs against. Immutable during a transaction. Credentials are
// encrypted at rest.
type GatewayConfig struct {
	ID           int64
	AccountID    int64
	Provider     string
	Label        string
	ShowAddress  bool
	UpdateAddress bool
	TokenBilling TokenBillingMode

	// ReferenceField names the provider-specific response field carrying
	// the transaction reference, empty for the adapter's generic field.
	ReferenceField string

	CredentialsEnc string
	WebhookToken   string
	IsActive       bool
	CreatedAt      time.Time
}

// NewGatewayConfig creates a gateway config with validation.
func NewGatewayConfig(accountID int64, provider, credentialsEnc, webhookToken string) (*GatewayConfig, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("invalid account ID: %d", accountID)
	}
	if strings.TrimSpace(provider) == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if credentialsEnc == "" {
		return nil, fmt.Errorf("encrypted credentials are required")
	}
	return &GatewayConfig{
		AccountID:      accountID,
		Provider:       provider,
		TokenBilling:   TokenBillingOptIn,
		CredentialsEnc: credentialsEnc,
		WebhookToken:   webhookToken,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}, nil
}
