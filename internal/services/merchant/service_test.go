package merchant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"payflow/internal/config"
	"payflow/internal/crypto"
	"payflow/internal/domain/account"
	"payflow/internal/gateway"
	"payflow/internal/gateway/cardstream"
	"payflow/internal/store/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	accounts []*account.Account
	keys     []*account.APIKey
}

func (f *fakeAccounts) Save(_ context.Context, a *account.Account) error {
	a.ID = int64(len(f.accounts) + 1)
	f.accounts = append(f.accounts, a)
	return nil
}
func (f *fakeAccounts) FindByID(_ context.Context, id int64) (*account.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeAccounts) SaveAPIKey(_ context.Context, k *account.APIKey) error {
	k.ID = int64(len(f.keys) + 1)
	f.keys = append(f.keys, k)
	return nil
}
func (f *fakeAccounts) FindByAPIKeyHash(_ context.Context, hash string) (*account.Account, error) {
	for _, k := range f.keys {
		if k.KeyHash == hash && k.IsActive {
			return f.FindByID(context.Background(), k.AccountID)
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeConfigs struct {
	rows []*account.GatewayConfig
	key  []byte
}

func (f *fakeConfigs) Save(_ context.Context, gc *account.GatewayConfig) error {
	if gc.ID == 0 {
		gc.ID = int64(len(f.rows) + 1)
		f.rows = append(f.rows, gc)
	}
	return nil
}
func (f *fakeConfigs) FindByID(context.Context, int64, int64) (*account.GatewayConfig, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeConfigs) FindByWebhookToken(context.Context, string) (*account.GatewayConfig, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeConfigs) DecryptCredentials(gc *account.GatewayConfig) (gateway.Credentials, error) {
	plain, err := crypto.DecryptString(f.key, gc.CredentialsEnc)
	if err != nil {
		return nil, err
	}
	var creds gateway.Credentials
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

func newService() (*Service, *fakeAccounts, *fakeConfigs) {
	key := make([]byte, 32)
	cfg := config.Cfg{
		App: config.AppCfg{BaseURL: "https://pay.example.com"},
		Sec: config.SecurityCfg{AESKey: key},
	}
	accounts := &fakeAccounts{}
	configs := &fakeConfigs{key: key}

	registry := gateway.NewRegistry()
	registry.Register(gateway.ProviderCardstream, cardstream.New())

	return NewService(cfg, accounts, configs, registry), accounts, configs
}

func TestOnboardMintsAPIKeyOnce(t *testing.T) {
	svc, accounts, _ := newService()

	resp, err := svc.Onboard(context.Background(), OnboardRequest{Name: "Acme Ltd"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.APIKey, "pfk_"))
	require.Len(t, accounts.keys, 1)

	// Only the hash reaches storage, and it matches the plaintext.
	sum := sha256.Sum256([]byte(resp.APIKey))
	assert.Equal(t, hex.EncodeToString(sum[:]), accounts.keys[0].KeyHash)
	assert.NotContains(t, accounts.keys[0].KeyHash, resp.APIKey)

	acct, err := accounts.FindByAPIKeyHash(context.Background(), hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	assert.Equal(t, resp.AccountID, acct.ID)
}

func TestOnboardValidation(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.Onboard(context.Background(), OnboardRequest{Name: " "})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)
}

func TestAddGatewayEncryptsCredentials(t *testing.T) {
	svc, _, configs := newService()
	resp, err := svc.Onboard(context.Background(), OnboardRequest{Name: "Acme Ltd"})
	require.NoError(t, err)

	out, err := svc.AddGateway(context.Background(), resp.AccountID, AddGatewayRequest{
		Provider:     string(gateway.ProviderCardstream),
		Credentials:  gateway.Credentials{"api_key": "sk_live_secret", "environment": "production"},
		TokenBilling: "always",
	})
	require.NoError(t, err)
	assert.Contains(t, out.WebhookURL, "https://pay.example.com/webhooks/")

	require.Len(t, configs.rows, 1)
	gc := configs.rows[0]
	assert.NotContains(t, gc.CredentialsEnc, "sk_live_secret")
	assert.Equal(t, account.TokenBillingAlways, gc.TokenBilling)

	creds, err := configs.DecryptCredentials(gc)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_secret", creds["api_key"])
}

func TestAddGatewayValidation(t *testing.T) {
	svc, _, _ := newService()
	resp, err := svc.Onboard(context.Background(), OnboardRequest{Name: "Acme Ltd"})
	require.NoError(t, err)

	var vErr *ValidationError

	// Unregistered provider.
	_, err = svc.AddGateway(context.Background(), resp.AccountID, AddGatewayRequest{
		Provider:    "nope",
		Credentials: gateway.Credentials{"api_key": "x"},
	})
	require.ErrorAs(t, err, &vErr)

	// Missing required credential.
	_, err = svc.AddGateway(context.Background(), resp.AccountID, AddGatewayRequest{
		Provider:    string(gateway.ProviderCardstream),
		Credentials: gateway.Credentials{},
	})
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Field, "credentials.")

	// Bad token billing mode.
	_, err = svc.AddGateway(context.Background(), resp.AccountID, AddGatewayRequest{
		Provider:     string(gateway.ProviderCardstream),
		Credentials:  gateway.Credentials{"api_key": "x", "environment": "sandbox"},
		TokenBilling: "sometimes",
	})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "token_billing", vErr.Field)

	// Unknown account.
	_, err = svc.AddGateway(context.Background(), 999, AddGatewayRequest{
		Provider:    string(gateway.ProviderCardstream),
		Credentials: gateway.Credentials{"api_key": "x", "environment": "sandbox"},
	})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
