package purchase

import (
	"context"
	"fmt"

	"payflow/internal/domain/account"
	"payflow/internal/domain/checkout"
	"payflow/internal/domain/customer"
	"payflow/internal/domain/invoice"
	"payflow/internal/domain/payment"
	"payflow/internal/gateway"
	"payflow/internal/store/repositories"

	"github.com/shopspring/decimal"
)

// fakeGateway is a scripted adapter: each call returns its preset response
// and counts invocations.
type fakeGateway struct {
	name string
	ops  []gateway.Operation

	purchaseResp *gateway.Response
	purchaseErr  error
	completeResp *gateway.Response
	completeErr  error
	customerResp *gateway.Response
	tokenResp    *gateway.Response

	purchaseCalls int
	completeCalls int
	customerCalls int
	tokenCalls    int

	lastPurchase gateway.PurchaseRequest
	lastComplete gateway.PurchaseRequest
	lastToken    gateway.TokenRequest
}

func (f *fakeGateway) Name() string                                        { return f.name }
func (f *fakeGateway) SupportedOperations() []gateway.Operation            { return f.ops }
func (f *fakeGateway) RequiredCredentialFields() []gateway.CredentialField { return nil }

func (f *fakeGateway) Purchase(_ context.Context, _ gateway.Credentials, req gateway.PurchaseRequest) (*gateway.Response, error) {
	f.purchaseCalls++
	f.lastPurchase = req
	return f.purchaseResp, f.purchaseErr
}

func (f *fakeGateway) CompletePurchase(_ context.Context, _ gateway.Credentials, req gateway.PurchaseRequest) (*gateway.Response, error) {
	f.completeCalls++
	f.lastComplete = req
	return f.completeResp, f.completeErr
}

func (f *fakeGateway) Refund(context.Context, gateway.Credentials, gateway.RefundRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}

func (f *fakeGateway) Void(context.Context, gateway.Credentials, gateway.VoidRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}

func (f *fakeGateway) CreateCustomer(context.Context, gateway.Credentials, gateway.CustomerRequest) (*gateway.Response, error) {
	f.customerCalls++
	return f.customerResp, nil
}

func (f *fakeGateway) CreateToken(_ context.Context, _ gateway.Credentials, req gateway.TokenRequest) (*gateway.Response, error) {
	f.tokenCalls++
	f.lastToken = req
	return f.tokenResp, nil
}

func (f *fakeGateway) ParseWebhook([]byte, map[string]string, string) (gateway.WebhookEvent, error) {
	return gateway.WebhookEvent{}, gateway.ErrUnsupported
}

type fakePayments struct {
	rows   []*payment.Payment
	nextID int64
}

func refKey(accountID int64, ref string) string {
	return fmt.Sprintf("%d|%s", accountID, ref)
}

func (f *fakePayments) Save(_ context.Context, p *payment.Payment) error {
	if p.ID != 0 {
		return nil
	}
	for _, row := range f.rows {
		if refKey(row.AccountID, row.TransactionRef) == refKey(p.AccountID, p.TransactionRef) {
			return payment.ErrDuplicateTransaction
		}
	}
	f.nextID++
	p.ID = f.nextID
	f.rows = append(f.rows, p)
	return nil
}

func (f *fakePayments) FindByID(_ context.Context, accountID, id int64) (*payment.Payment, error) {
	for _, row := range f.rows {
		if row.ID == id && row.AccountID == accountID {
			return row, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakePayments) ReferenceExists(_ context.Context, accountID int64, ref string) (bool, error) {
	for _, row := range f.rows {
		if row.AccountID == accountID && row.TransactionRef == ref {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePayments) FindByAccountID(_ context.Context, accountID int64, _, _ int) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, row := range f.rows {
		if row.AccountID == accountID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeInvoices struct {
	invoice *invoice.Invoice
	client  *invoice.Client
	contact *invoice.Contact

	clientUpdates int
}

func (f *fakeInvoices) FindByID(_ context.Context, accountID, id int64) (*invoice.Invoice, error) {
	if f.invoice == nil || f.invoice.ID != id || f.invoice.AccountID != accountID {
		return nil, repositories.ErrNotFound
	}
	return f.invoice, nil
}

func (f *fakeInvoices) ApplyPayment(_ context.Context, invoiceID int64, amount decimal.Decimal) error {
	if f.invoice == nil || f.invoice.ID != invoiceID {
		return repositories.ErrNotFound
	}
	f.invoice.Balance = f.invoice.Balance.Sub(amount)
	f.invoice.PartialAmount = decimal.Zero
	return nil
}

func (f *fakeInvoices) ClientByID(_ context.Context, id int64) (*invoice.Client, error) {
	if f.client == nil || f.client.ID != id {
		return nil, repositories.ErrNotFound
	}
	return f.client, nil
}

func (f *fakeInvoices) ContactByID(_ context.Context, id int64) (*invoice.Contact, error) {
	if f.contact == nil || f.contact.ID != id {
		return nil, repositories.ErrNotFound
	}
	return f.contact, nil
}

func (f *fakeInvoices) UpdateClient(_ context.Context, c *invoice.Client) error {
	f.client = c
	f.clientUpdates++
	return nil
}

func (f *fakeInvoices) UpdateContact(_ context.Context, c *invoice.Contact) error {
	f.contact = c
	return nil
}

type fakeConfigs struct {
	configs map[int64]*account.GatewayConfig
	creds   gateway.Credentials
}

func (f *fakeConfigs) Save(_ context.Context, gc *account.GatewayConfig) error {
	if gc.ID == 0 {
		gc.ID = int64(len(f.configs) + 1)
	}
	f.configs[gc.ID] = gc
	return nil
}

func (f *fakeConfigs) FindByID(_ context.Context, accountID, id int64) (*account.GatewayConfig, error) {
	gc, ok := f.configs[id]
	if !ok || gc.AccountID != accountID {
		return nil, repositories.ErrNotFound
	}
	return gc, nil
}

func (f *fakeConfigs) FindByWebhookToken(_ context.Context, token string) (*account.GatewayConfig, error) {
	for _, gc := range f.configs {
		if gc.WebhookToken == token {
			return gc, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeConfigs) DecryptCredentials(*account.GatewayConfig) (gateway.Credentials, error) {
	return f.creds, nil
}

type fakeSessions struct {
	byKey map[string]*checkout.Session
	byRef map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byKey: map[string]*checkout.Session{}, byRef: map[string]string{}}
}

func (f *fakeSessions) Put(_ context.Context, s *checkout.Session) error {
	f.byKey[s.InvitationKey] = s
	if s.PendingRef != "" {
		f.byRef[s.PendingRef] = s.InvitationKey
	}
	return nil
}

func (f *fakeSessions) Get(_ context.Context, key string) (*checkout.Session, error) {
	s, ok := f.byKey[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) GetByRef(ctx context.Context, ref string) (*checkout.Session, error) {
	key, ok := f.byRef[ref]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return f.Get(ctx, key)
}

func (f *fakeSessions) Delete(_ context.Context, key string) error {
	if s, ok := f.byKey[key]; ok && s.PendingRef != "" {
		delete(f.byRef, s.PendingRef)
	}
	delete(f.byKey, key)
	return nil
}

type fakeCustomers struct {
	rows   map[string]*customer.Customer
	nextID int64
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{rows: map[string]*customer.Customer{}}
}

func customerKey(clientID, gatewayConfigID int64) string {
	return fmt.Sprintf("%d|%d", clientID, gatewayConfigID)
}

func (f *fakeCustomers) Save(_ context.Context, c *customer.Customer) error {
	if c.ID == 0 {
		f.nextID++
		c.ID = f.nextID
	}
	f.rows[customerKey(c.ClientID, c.GatewayConfigID)] = c
	return nil
}

func (f *fakeCustomers) FindByClientAndConfig(_ context.Context, clientID, gatewayConfigID int64) (*customer.Customer, error) {
	c, ok := f.rows[customerKey(clientID, gatewayConfigID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

type fakeMethods struct {
	customers *fakeCustomers
	rows      []*customer.PaymentMethod
	nextID    int64
}

func (f *fakeMethods) ownerClientID(customerID int64) int64 {
	for _, c := range f.customers.rows {
		if c.ID == customerID {
			return c.ClientID
		}
	}
	return 0
}

func (f *fakeMethods) Save(_ context.Context, m *customer.PaymentMethod) error {
	if m.ID == 0 {
		f.nextID++
		m.ID = f.nextID
		f.rows = append(f.rows, m)
	}
	return nil
}

func (f *fakeMethods) SaveAsDefault(ctx context.Context, m *customer.PaymentMethod, c *customer.Customer) error {
	if err := f.Save(ctx, m); err != nil {
		return err
	}
	c.DefaultMethodID = &m.ID
	return nil
}

func (f *fakeMethods) FindByPublicID(_ context.Context, clientID int64, publicID string) (*customer.PaymentMethod, error) {
	for _, m := range f.rows {
		if m.PublicID == publicID && f.ownerClientID(m.CustomerID) == clientID {
			return m, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeMethods) FindByCustomerID(_ context.Context, customerID int64) ([]*customer.PaymentMethod, error) {
	var out []*customer.PaymentMethod
	for _, m := range f.rows {
		if m.CustomerID == customerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMethods) Delete(_ context.Context, id int64) error {
	for i, m := range f.rows {
		if m.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeMethods) UpdateStatus(_ context.Context, id int64, status customer.MethodStatus) error {
	for _, m := range f.rows {
		if m.ID == id {
			m.Status = status
			return nil
		}
	}
	return repositories.ErrNotFound
}

var (
	_ repositories.PaymentRepository       = (*fakePayments)(nil)
	_ repositories.InvoiceRepository       = (*fakeInvoices)(nil)
	_ repositories.GatewayConfigRepository = (*fakeConfigs)(nil)
	_ repositories.SessionStore            = (*fakeSessions)(nil)
	_ repositories.CustomerRepository      = (*fakeCustomers)(nil)
	_ repositories.MethodRepository        = (*fakeMethods)(nil)
)
