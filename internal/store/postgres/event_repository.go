package postgres

import (
	"context"

	"payflow/internal/domain/event"
	"payflow/internal/store/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository persists inbound webhook events.
type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

var _ repositories.EventRepository = (*EventRepository)(nil)

func (r *EventRepository) Save(ctx context.Context, e *event.Event) error {
	if e.ID == 0 {
		return r.db.QueryRow(ctx, `
			INSERT INTO webhook_events (
				account_id, gateway_config_id, kind, transaction_ref,
				payload_json, received_at, status
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id`,
			e.AccountID, e.GatewayConfigID, string(e.Kind), e.TransactionRef,
			e.RawJSON, e.ReceivedAt, string(e.Status),
		).Scan(&e.ID)
	}

	_, err := r.db.Exec(ctx, `
		UPDATE webhook_events
		   SET status = $1, processed_at = $2, failure_reason = $3
		 WHERE id = $4`,
		string(e.Status), e.ProcessedAt, e.FailureReason, e.ID)
	return err
}

func (r *EventRepository) FindByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*event.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, gateway_config_id, kind, transaction_ref,
		       payload_json, received_at, processed_at, status, failure_reason
		  FROM webhook_events
		 WHERE account_id = $1
		 ORDER BY received_at DESC
		 LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*event.Event
	for rows.Next() {
		var e event.Event
		var kind, status string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.GatewayConfigID, &kind,
			&e.TransactionRef, &e.RawJSON, &e.ReceivedAt, &e.ProcessedAt,
			&status, &e.FailureReason); err != nil {
			return nil, err
		}
		e.Kind = event.Kind(kind)
		e.Status = event.ProcessingStatus(status)
		out = append(out, &e)
	}
	return out, rows.Err()
}
