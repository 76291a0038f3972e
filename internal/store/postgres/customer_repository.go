package postgres

import (
	"context"
	"errors"

	"payflow/internal/domain/customer"
	"payflow/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRepository persists gateway-side customer links, keyed by
// (client_id, gateway_config_id).
type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

var _ repositories.CustomerRepository = (*CustomerRepository)(nil)

func (r *CustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	if c.ID == 0 {
		return r.db.QueryRow(ctx, `
			INSERT INTO gateway_customers (
				account_id, client_id, contact_id, gateway_config_id,
				gateway_customer_ref, created_at, updated_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id`,
			c.AccountID, c.ClientID, c.ContactID, c.GatewayConfigID,
			c.GatewayCustomerRef, c.CreatedAt, c.UpdatedAt,
		).Scan(&c.ID)
	}

	_, err := r.db.Exec(ctx, `
		UPDATE gateway_customers
		   SET gateway_customer_ref = $1,
		       default_method_id    = $2,
		       updated_at           = now()
		 WHERE id = $3`,
		c.GatewayCustomerRef, c.DefaultMethodID, c.ID)
	return err
}

func (r *CustomerRepository) FindByClientAndConfig(ctx context.Context, clientID, gatewayConfigID int64) (*customer.Customer, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, client_id, contact_id, gateway_config_id,
		       gateway_customer_ref, default_method_id, created_at, updated_at
		  FROM gateway_customers
		 WHERE client_id = $1 AND gateway_config_id = $2`, clientID, gatewayConfigID)

	var c customer.Customer
	err := row.Scan(&c.ID, &c.AccountID, &c.ClientID, &c.ContactID, &c.GatewayConfigID,
		&c.GatewayCustomerRef, &c.DefaultMethodID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
