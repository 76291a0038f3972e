// Package merchant handles account onboarding and gateway configuration.
// Credentials are sealed with the server key before they touch storage; the
// plaintext API key is returned exactly once at creation.
package merchant

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"payflow/internal/config"
	"payflow/internal/crypto"
	"payflow/internal/domain/account"
	"payflow/internal/gateway"
	"payflow/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ValidationError reports a bad onboarding request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type Service struct {
	cfg      config.Cfg
	accounts repositories.AccountRepository
	configs  repositories.GatewayConfigRepository
	registry *gateway.Registry
}

func NewService(cfg config.Cfg, accounts repositories.AccountRepository, configs repositories.GatewayConfigRepository, registry *gateway.Registry) *Service {
	return &Service{cfg: cfg, accounts: accounts, configs: configs, registry: registry}
}

type OnboardRequest struct {
	Name    string `json:"name"`
	KeyName string `json:"key_name"`
}

type OnboardResponse struct {
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
	APIKey    string `json:"api_key"` // plaintext, shown once
}

// Onboard creates a merchant account and its first API key.
func (s *Service) Onboard(ctx context.Context, req OnboardRequest) (*OnboardResponse, error) {
	acct, err := account.NewAccount(req.Name)
	if err != nil {
		return nil, &ValidationError{Field: "name", Message: err.Error()}
	}
	if err := s.accounts.Save(ctx, acct); err != nil {
		return nil, err
	}

	plaintext, hash, err := mintAPIKey()
	if err != nil {
		return nil, err
	}
	key, err := account.NewAPIKey(acct.ID, req.KeyName, hash)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.SaveAPIKey(ctx, key); err != nil {
		return nil, err
	}

	log.Info().Int64("account_id", acct.ID).Str("name", acct.Name).Msg("merchant account onboarded")
	return &OnboardResponse{AccountID: acct.ID, Name: acct.Name, APIKey: plaintext}, nil
}

type AddGatewayRequest struct {
	Provider       string              `json:"provider"`
	Label          string              `json:"label"`
	Credentials    gateway.Credentials `json:"credentials"`
	ShowAddress    bool                `json:"show_address"`
	UpdateAddress  bool                `json:"update_address"`
	TokenBilling   string              `json:"token_billing"`
	ReferenceField string              `json:"reference_field"`
}

type AddGatewayResponse struct {
	GatewayConfigID int64  `json:"gateway_config_id"`
	WebhookURL      string `json:"webhook_url"`
}

// AddGateway configures a payment gateway for an account. The provider must
// be registered and every credential it requires must be present; the
// credential blob is encrypted before persistence.
func (s *Service) AddGateway(ctx context.Context, accountID int64, req AddGatewayRequest) (*AddGatewayResponse, error) {
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		return nil, err
	}

	g, err := s.registry.Get(gateway.ProviderType(req.Provider))
	if err != nil {
		return nil, &ValidationError{Field: "provider", Message: err.Error()}
	}
	for _, field := range g.RequiredCredentialFields() {
		if field.Required && strings.TrimSpace(req.Credentials[field.Name]) == "" {
			return nil, &ValidationError{Field: "credentials." + field.Name, Message: "required"}
		}
	}

	raw, err := json.Marshal(req.Credentials)
	if err != nil {
		return nil, err
	}
	enc, err := crypto.EncryptString(s.cfg.Sec.AESKey, string(raw))
	if err != nil {
		return nil, err
	}

	webhookToken := uuid.NewString()
	gwCfg, err := account.NewGatewayConfig(accountID, req.Provider, enc, webhookToken)
	if err != nil {
		return nil, &ValidationError{Field: "provider", Message: err.Error()}
	}
	gwCfg.Label = req.Label
	gwCfg.ShowAddress = req.ShowAddress
	gwCfg.UpdateAddress = req.UpdateAddress
	gwCfg.ReferenceField = req.ReferenceField
	if req.TokenBilling != "" {
		mode := account.TokenBillingMode(req.TokenBilling)
		switch mode {
		case account.TokenBillingDisabled, account.TokenBillingOptIn, account.TokenBillingAlways:
			gwCfg.TokenBilling = mode
		default:
			return nil, &ValidationError{Field: "token_billing", Message: "must be disabled, opt_in, or always"}
		}
	}

	if err := s.configs.Save(ctx, gwCfg); err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", accountID).
		Int64("gateway_config_id", gwCfg.ID).
		Str("provider", req.Provider).
		Msg("gateway configured")
	return &AddGatewayResponse{
		GatewayConfigID: gwCfg.ID,
		WebhookURL:      fmt.Sprintf("%s/webhooks/%s", s.cfg.App.BaseURL, webhookToken),
	}, nil
}

// mintAPIKey generates a random key and its storage hash. Only the hash is
// ever persisted.
func mintAPIKey() (plaintext, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = "pfk_" + hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(plaintext))
	return plaintext, hex.EncodeToString(sum[:]), nil
}
