package postgres

import (
	"context"
	"errors"
	"fmt"

	"payflow/internal/domain/payment"
	"payflow/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// PaymentRepository is the pgx-backed payment ledger. The payments table
// carries a unique index on (account_id, transaction_ref); the insert maps
// its violation to payment.ErrDuplicateTransaction so a lost race between
// two completion callbacks surfaces as a dedup rejection, not a fatal error.
type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

var _ repositories.PaymentRepository = (*PaymentRepository)(nil)

func (r *PaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	if p.ID == 0 {
		return r.insert(ctx, p)
	}
	return r.update(ctx, p)
}

func (r *PaymentRepository) insert(ctx context.Context, p *payment.Payment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (
			account_id, invoice_id, client_id, contact_id, gateway_config_id,
			payment_method_id, amount, refunded_amount, status, payment_type,
			transaction_ref, last4, expiration, routing_number, bank_name,
			email, ip, payment_date, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		RETURNING id`,
		p.AccountID, p.InvoiceID, p.ClientID, p.ContactID, p.GatewayConfigID,
		p.PaymentMethodID, p.Amount.StringFixed(2), p.RefundedAmount.StringFixed(2),
		string(p.Status), string(p.Type), p.TransactionRef, p.Last4, p.Expiration,
		p.RoutingNumber, p.BankName, p.Email, p.IP, p.PaymentDate, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return payment.ErrDuplicateTransaction
	}
	return err
}

func (r *PaymentRepository) update(ctx context.Context, p *payment.Payment) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payments
		   SET refunded_amount = $1,
		       status          = $2,
		       updated_at      = $3
		 WHERE id = $4 AND account_id = $5`,
		p.RefundedAmount.StringFixed(2), string(p.Status), p.UpdatedAt, p.ID, p.AccountID)
	return err
}

func (r *PaymentRepository) FindByID(ctx context.Context, accountID, id int64) (*payment.Payment, error) {
	row := r.db.QueryRow(ctx, selectPayment+` WHERE id = $1 AND account_id = $2`, id, accountID)
	return scanPayment(row)
}

func (r *PaymentRepository) ReferenceExists(ctx context.Context, accountID int64, transactionRef string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payments WHERE account_id = $1 AND transaction_ref = $2
		)`, accountID, transactionRef).Scan(&exists)
	return exists, err
}

func (r *PaymentRepository) FindByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*payment.Payment, error) {
	rows, err := r.db.Query(ctx, selectPayment+`
		 WHERE account_id = $1
		 ORDER BY id DESC
		 LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const selectPayment = `
	SELECT id, account_id, invoice_id, client_id, contact_id, gateway_config_id,
	       payment_method_id, amount::text, refunded_amount::text, status,
	       payment_type, transaction_ref, last4, expiration, routing_number,
	       bank_name, email, ip, payment_date, created_at, updated_at
	  FROM payments`

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	var amount, refunded, status, ptype string
	err := row.Scan(
		&p.ID, &p.AccountID, &p.InvoiceID, &p.ClientID, &p.ContactID, &p.GatewayConfigID,
		&p.PaymentMethodID, &amount, &refunded, &status, &ptype, &p.TransactionRef,
		&p.Last4, &p.Expiration, &p.RoutingNumber, &p.BankName, &p.Email, &p.IP,
		&p.PaymentDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if p.RefundedAmount, err = decimal.NewFromString(refunded); err != nil {
		return nil, fmt.Errorf("parse refunded amount: %w", err)
	}
	p.Status = payment.Status(status)
	p.Type = payment.Type(ptype)
	return &p, nil
}
