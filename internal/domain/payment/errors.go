package payment

import "errors"

var (
	// ErrDuplicateTransaction means a payment with the same transaction
	// reference already exists for the account. It indicates either a
	// replayed completion callback or a real double-charge risk, and is
	// never silently swallowed.
	ErrDuplicateTransaction = errors.New("duplicate transaction reference")

	// ErrAlreadyPaid means the invoice balance was already zero when a
	// completion was attempted. Distinct from ErrDuplicateTransaction: it
	// can occur without any reference collision.
	ErrAlreadyPaid = errors.New("invoice already paid")
)
