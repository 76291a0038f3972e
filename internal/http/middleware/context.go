package middlewarex

import "context"

type ctxKey string

const (
	ctxAccountID ctxKey = "account_id"
)

func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, ctxAccountID, accountID)
}

func AccountID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ctxAccountID).(int64)
	return v, ok
}
