package postgres

import (
	"context"
	"errors"
	"fmt"

	"payflow/internal/domain/invoice"
	"payflow/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InvoiceRepository reads invoices, clients, and contacts, and applies
// completed payment amounts to invoice balances.
type InvoiceRepository struct {
	db *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

var _ repositories.InvoiceRepository = (*InvoiceRepository)(nil)

func (r *InvoiceRepository) FindByID(ctx context.Context, accountID, id int64) (*invoice.Invoice, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, client_id, number, amount::text, balance::text,
		       partial_amount::text, currency_code
		  FROM invoices
		 WHERE id = $1 AND account_id = $2`, id, accountID)

	var inv invoice.Invoice
	var amount, balance, partial string
	err := row.Scan(&inv.ID, &inv.AccountID, &inv.ClientID, &inv.Number,
		&amount, &balance, &partial, &inv.CurrencyCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if inv.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	if inv.PartialAmount, err = decimal.NewFromString(partial); err != nil {
		return nil, fmt.Errorf("parse partial amount: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) ApplyPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		   SET balance        = balance - $1,
		       partial_amount = 0,
		       updated_at     = now()
		 WHERE id = $2`, amount.StringFixed(2), invoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *InvoiceRepository) ClientByID(ctx context.Context, id int64) (*invoice.Client, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, name, address1, address2, city, state, postal_code, country_id
		  FROM clients
		 WHERE id = $1`, id)

	var c invoice.Client
	err := row.Scan(&c.ID, &c.AccountID, &c.Name, &c.Address1, &c.Address2,
		&c.City, &c.State, &c.PostalCode, &c.CountryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *InvoiceRepository) ContactByID(ctx context.Context, id int64) (*invoice.Contact, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, client_id, first_name, last_name, email, phone
		  FROM contacts
		 WHERE id = $1`, id)

	var c invoice.Contact
	err := row.Scan(&c.ID, &c.ClientID, &c.FirstName, &c.LastName, &c.Email, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *InvoiceRepository) UpdateClient(ctx context.Context, c *invoice.Client) error {
	_, err := r.db.Exec(ctx, `
		UPDATE clients
		   SET address1 = $1, address2 = $2, city = $3, state = $4,
		       postal_code = $5, country_id = $6, updated_at = now()
		 WHERE id = $7`,
		c.Address1, c.Address2, c.City, c.State, c.PostalCode, c.CountryID, c.ID)
	return err
}

func (r *InvoiceRepository) UpdateContact(ctx context.Context, c *invoice.Contact) error {
	_, err := r.db.Exec(ctx, `
		UPDATE contacts
		   SET first_name = $1, last_name = $2, email = $3, updated_at = now()
		 WHERE id = $4`,
		c.FirstName, c.LastName, c.Email, c.ID)
	return err
}
