package repositories

import (
	"context"
	"errors"

	"payflow/internal/domain/account"
	"payflow/internal/domain/checkout"
	"payflow/internal/domain/customer"
	"payflow/internal/domain/event"
	"payflow/internal/domain/invoice"
	"payflow/internal/domain/payment"
	"payflow/internal/gateway"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PaymentRepository is the local payment ledger. Save must map a storage
// uniqueness rejection on (accountID, transactionRef) to
// payment.ErrDuplicateTransaction.
type PaymentRepository interface {
	Save(ctx context.Context, p *payment.Payment) error
	FindByID(ctx context.Context, accountID, id int64) (*payment.Payment, error)
	ReferenceExists(ctx context.Context, accountID int64, transactionRef string) (bool, error)
	FindByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*payment.Payment, error)
}

// InvoiceRepository reads invoices and applies payment amounts to balances.
type InvoiceRepository interface {
	FindByID(ctx context.Context, accountID, id int64) (*invoice.Invoice, error)
	ApplyPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) error
	ClientByID(ctx context.Context, id int64) (*invoice.Client, error)
	ContactByID(ctx context.Context, id int64) (*invoice.Contact, error)
	UpdateClient(ctx context.Context, c *invoice.Client) error
	UpdateContact(ctx context.Context, c *invoice.Contact) error
}

// CustomerRepository persists gateway-side customer links.
type CustomerRepository interface {
	Save(ctx context.Context, c *customer.Customer) error
	FindByClientAndConfig(ctx context.Context, clientID, gatewayConfigID int64) (*customer.Customer, error)
}

// MethodRepository persists tokenized payment methods.
type MethodRepository interface {
	Save(ctx context.Context, m *customer.PaymentMethod) error
	// SaveAsDefault inserts the method and points the customer's default at
	// it in the same transaction.
	SaveAsDefault(ctx context.Context, m *customer.PaymentMethod, c *customer.Customer) error
	FindByPublicID(ctx context.Context, clientID int64, publicID string) (*customer.PaymentMethod, error)
	FindByCustomerID(ctx context.Context, customerID int64) ([]*customer.PaymentMethod, error)
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status customer.MethodStatus) error
}

// GatewayConfigRepository persists per-account gateway configurations.
type GatewayConfigRepository interface {
	Save(ctx context.Context, gc *account.GatewayConfig) error
	FindByID(ctx context.Context, accountID, id int64) (*account.GatewayConfig, error)
	FindByWebhookToken(ctx context.Context, token string) (*account.GatewayConfig, error)
	DecryptCredentials(gc *account.GatewayConfig) (gateway.Credentials, error)
}

// AccountRepository persists merchant accounts and API keys.
type AccountRepository interface {
	Save(ctx context.Context, a *account.Account) error
	FindByID(ctx context.Context, id int64) (*account.Account, error)
	SaveAPIKey(ctx context.Context, k *account.APIKey) error
	FindByAPIKeyHash(ctx context.Context, keyHash string) (*account.Account, error)
}

// EventRepository persists inbound webhook events.
type EventRepository interface {
	Save(ctx context.Context, e *event.Event) error
	FindByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*event.Event, error)
}

// SessionStore is the checkout-session boundary: the transaction context must
// survive the redirect round trip even when completion lands on a different
// process.
type SessionStore interface {
	Put(ctx context.Context, s *checkout.Session) error
	Get(ctx context.Context, invitationKey string) (*checkout.Session, error)
	// GetByRef resolves a session by its pending provider reference. Used by
	// asynchronous completion paths that only know the provider's identifier.
	GetByRef(ctx context.Context, pendingRef string) (*checkout.Session, error)
	Delete(ctx context.Context, invitationKey string) error
}
