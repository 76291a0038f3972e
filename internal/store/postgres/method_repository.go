package postgres

import (
	"context"
	"errors"

	"payflow/internal/domain/customer"
	"payflow/internal/domain/payment"
	"payflow/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MethodRepository persists tokenized payment methods.
type MethodRepository struct {
	db *pgxpool.Pool
}

func NewMethodRepository(db *pgxpool.Pool) *MethodRepository {
	return &MethodRepository{db: db}
}

var _ repositories.MethodRepository = (*MethodRepository)(nil)

const insertMethod = `
	INSERT INTO payment_methods (
		customer_id, contact_id, public_id, source_ref, method_type, status,
		last4, expiration, routing_number, bank_name, email, ip, created_at
	)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	RETURNING id`

func (r *MethodRepository) Save(ctx context.Context, m *customer.PaymentMethod) error {
	return r.db.QueryRow(ctx, insertMethod,
		m.CustomerID, m.ContactID, m.PublicID, m.SourceRef, string(m.Type), string(m.Status),
		m.Last4, m.Expiration, m.RoutingNumber, m.BankName, m.Email, m.IP, m.CreatedAt,
	).Scan(&m.ID)
}

// SaveAsDefault inserts the method and points the customer's default at it
// in one transaction, so the first method a customer gets is its default
// atomically.
func (r *MethodRepository) SaveAsDefault(ctx context.Context, m *customer.PaymentMethod, c *customer.Customer) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, insertMethod,
		m.CustomerID, m.ContactID, m.PublicID, m.SourceRef, string(m.Type), string(m.Status),
		m.Last4, m.Expiration, m.RoutingNumber, m.BankName, m.Email, m.IP, m.CreatedAt,
	).Scan(&m.ID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE gateway_customers
		   SET default_method_id = $1, updated_at = now()
		 WHERE id = $2`, m.ID, c.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	c.DefaultMethodID = &m.ID
	return nil
}

func (r *MethodRepository) FindByPublicID(ctx context.Context, clientID int64, publicID string) (*customer.PaymentMethod, error) {
	row := r.db.QueryRow(ctx, selectMethod+`
		  JOIN gateway_customers gc ON gc.id = pm.customer_id
		 WHERE pm.public_id = $1 AND gc.client_id = $2`, publicID, clientID)
	return scanMethod(row)
}

func (r *MethodRepository) FindByCustomerID(ctx context.Context, customerID int64) ([]*customer.PaymentMethod, error) {
	rows, err := r.db.Query(ctx, selectMethod+`
		 WHERE pm.customer_id = $1
		 ORDER BY pm.id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*customer.PaymentMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MethodRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *MethodRepository) UpdateStatus(ctx context.Context, id int64, status customer.MethodStatus) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_methods SET status = $1 WHERE id = $2`, string(status), id)
	return err
}

const selectMethod = `
	SELECT pm.id, pm.customer_id, pm.contact_id, pm.public_id, pm.source_ref,
	       pm.method_type, pm.status, pm.last4, pm.expiration, pm.routing_number,
	       pm.bank_name, pm.email, pm.ip, pm.created_at
	  FROM payment_methods pm`

func scanMethod(row pgx.Row) (*customer.PaymentMethod, error) {
	var m customer.PaymentMethod
	var mtype, status string
	err := row.Scan(&m.ID, &m.CustomerID, &m.ContactID, &m.PublicID, &m.SourceRef,
		&mtype, &status, &m.Last4, &m.Expiration, &m.RoutingNumber,
		&m.BankName, &m.Email, &m.IP, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Type = payment.Type(mtype)
	m.Status = customer.MethodStatus(status)
	return &m, nil
}
