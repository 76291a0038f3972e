package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"payflow/internal/crypto"
	"payflow/internal/domain/account"
	"payflow/internal/gateway"
	"payflow/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GatewayConfigRepository persists per-account gateway configurations with
// credentials encrypted at rest.
type GatewayConfigRepository struct {
	db     *pgxpool.Pool
	aesKey []byte
}

func NewGatewayConfigRepository(db *pgxpool.Pool, aesKey []byte) *GatewayConfigRepository {
	return &GatewayConfigRepository{db: db, aesKey: aesKey}
}

var _ repositories.GatewayConfigRepository = (*GatewayConfigRepository)(nil)

func (r *GatewayConfigRepository) Save(ctx context.Context, gc *account.GatewayConfig) error {
	if gc.ID == 0 {
		return r.db.QueryRow(ctx, `
			INSERT INTO gateway_configs (
				account_id, provider, label, show_address, update_address,
				token_billing, reference_field, credentials_enc, webhook_token,
				is_active, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			RETURNING id`,
			gc.AccountID, gc.Provider, gc.Label, gc.ShowAddress, gc.UpdateAddress,
			string(gc.TokenBilling), gc.ReferenceField, gc.CredentialsEnc,
			gc.WebhookToken, gc.IsActive, gc.CreatedAt,
		).Scan(&gc.ID)
	}

	_, err := r.db.Exec(ctx, `
		UPDATE gateway_configs
		   SET label = $1, show_address = $2, update_address = $3,
		       token_billing = $4, reference_field = $5, credentials_enc = $6,
		       is_active = $7
		 WHERE id = $8`,
		gc.Label, gc.ShowAddress, gc.UpdateAddress, string(gc.TokenBilling),
		gc.ReferenceField, gc.CredentialsEnc, gc.IsActive, gc.ID)
	return err
}

func (r *GatewayConfigRepository) FindByID(ctx context.Context, accountID, id int64) (*account.GatewayConfig, error) {
	row := r.db.QueryRow(ctx, selectGatewayConfig+`
		 WHERE id = $1 AND account_id = $2 AND is_active = true`, id, accountID)
	return scanGatewayConfig(row)
}

func (r *GatewayConfigRepository) FindByWebhookToken(ctx context.Context, token string) (*account.GatewayConfig, error) {
	row := r.db.QueryRow(ctx, selectGatewayConfig+`
		 WHERE webhook_token = $1 AND is_active = true`, token)
	return scanGatewayConfig(row)
}

// DecryptCredentials unseals the stored credential blob for adapter calls.
func (r *GatewayConfigRepository) DecryptCredentials(gc *account.GatewayConfig) (gateway.Credentials, error) {
	plain, err := crypto.DecryptString(r.aesKey, gc.CredentialsEnc)
	if err != nil {
		return nil, err
	}
	var creds gateway.Credentials
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

const selectGatewayConfig = `
	SELECT id, account_id, provider, label, show_address, update_address,
	       token_billing, reference_field, credentials_enc, webhook_token,
	       is_active, created_at
	  FROM gateway_configs`

func scanGatewayConfig(row pgx.Row) (*account.GatewayConfig, error) {
	var gc account.GatewayConfig
	var tokenBilling string
	err := row.Scan(&gc.ID, &gc.AccountID, &gc.Provider, &gc.Label, &gc.ShowAddress,
		&gc.UpdateAddress, &tokenBilling, &gc.ReferenceField, &gc.CredentialsEnc,
		&gc.WebhookToken, &gc.IsActive, &gc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	gc.TokenBilling = account.TokenBillingMode(tokenBilling)
	return &gc, nil
}
