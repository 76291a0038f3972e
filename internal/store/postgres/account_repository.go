package postgres

import (
	"context"
	"errors"

	"payflow/internal/domain/account"
	"payflow/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository persists merchant accounts and their API keys.
type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ repositories.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Save(ctx context.Context, a *account.Account) error {
	if a.ID == 0 {
		return r.db.QueryRow(ctx, `
			INSERT INTO accounts (name, status) VALUES ($1, $2) RETURNING id`,
			a.Name, string(a.Status),
		).Scan(&a.ID)
	}
	_, err := r.db.Exec(ctx, `
		UPDATE accounts SET name = $1, status = $2 WHERE id = $3`,
		a.Name, string(a.Status), a.ID)
	return err
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, status FROM accounts WHERE id = $1`, id)

	var a account.Account
	var status string
	err := row.Scan(&a.ID, &a.Name, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Status = account.Status(status)
	return &a, nil
}

func (r *AccountRepository) SaveAPIKey(ctx context.Context, k *account.APIKey) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO api_keys (account_id, name, key_hash, is_active)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		k.AccountID, k.Name, k.KeyHash, k.IsActive,
	).Scan(&k.ID)
}

func (r *AccountRepository) FindByAPIKeyHash(ctx context.Context, keyHash string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT a.id, a.name, a.status
		  FROM accounts a
		  JOIN api_keys k ON k.account_id = a.id
		 WHERE k.key_hash = $1 AND k.is_active = true AND a.status = 'active'`, keyHash)

	var a account.Account
	var status string
	err := row.Scan(&a.ID, &a.Name, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Status = account.Status(status)
	return &a, nil
}
