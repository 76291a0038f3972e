package refund

import (
	"context"
	"errors"
	"testing"

	"payflow/internal/domain/account"
	"payflow/internal/domain/invoice"
	"payflow/internal/domain/payment"
	"payflow/internal/gateway"
	"payflow/internal/store/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	ops []gateway.Operation

	refundResp *gateway.Response
	refundErr  error
	voidResp   *gateway.Response

	refundCalls int
	voidCalls   int
	lastRefund  gateway.RefundRequest
}

func (f *fakeGateway) Name() string                                        { return "fake" }
func (f *fakeGateway) SupportedOperations() []gateway.Operation            { return f.ops }
func (f *fakeGateway) RequiredCredentialFields() []gateway.CredentialField { return nil }

func (f *fakeGateway) Purchase(context.Context, gateway.Credentials, gateway.PurchaseRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}
func (f *fakeGateway) CompletePurchase(context.Context, gateway.Credentials, gateway.PurchaseRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}
func (f *fakeGateway) Refund(_ context.Context, _ gateway.Credentials, req gateway.RefundRequest) (*gateway.Response, error) {
	f.refundCalls++
	f.lastRefund = req
	return f.refundResp, f.refundErr
}
func (f *fakeGateway) Void(context.Context, gateway.Credentials, gateway.VoidRequest) (*gateway.Response, error) {
	f.voidCalls++
	return f.voidResp, nil
}
func (f *fakeGateway) CreateCustomer(context.Context, gateway.Credentials, gateway.CustomerRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}
func (f *fakeGateway) CreateToken(context.Context, gateway.Credentials, gateway.TokenRequest) (*gateway.Response, error) {
	return nil, gateway.ErrUnsupported
}
func (f *fakeGateway) ParseWebhook([]byte, map[string]string, string) (gateway.WebhookEvent, error) {
	return gateway.WebhookEvent{}, gateway.ErrUnsupported
}

type fakePayments struct {
	row *payment.Payment
}

func (f *fakePayments) Save(_ context.Context, p *payment.Payment) error {
	f.row = p
	return nil
}
func (f *fakePayments) FindByID(_ context.Context, accountID, id int64) (*payment.Payment, error) {
	if f.row == nil || f.row.ID != id || f.row.AccountID != accountID {
		return nil, repositories.ErrNotFound
	}
	return f.row, nil
}
func (f *fakePayments) ReferenceExists(context.Context, int64, string) (bool, error) {
	return false, nil
}
func (f *fakePayments) FindByAccountID(context.Context, int64, int, int) ([]*payment.Payment, error) {
	return nil, nil
}

type fakeInvoices struct {
	invoice *invoice.Invoice
}

func (f *fakeInvoices) FindByID(context.Context, int64, int64) (*invoice.Invoice, error) {
	return f.invoice, nil
}
func (f *fakeInvoices) ApplyPayment(_ context.Context, _ int64, amount decimal.Decimal) error {
	f.invoice.Balance = f.invoice.Balance.Sub(amount)
	return nil
}
func (f *fakeInvoices) ClientByID(context.Context, int64) (*invoice.Client, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeInvoices) ContactByID(context.Context, int64) (*invoice.Contact, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeInvoices) UpdateClient(context.Context, *invoice.Client) error   { return nil }
func (f *fakeInvoices) UpdateContact(context.Context, *invoice.Contact) error { return nil }

type fakeConfigs struct {
	gwCfg *account.GatewayConfig
}

func (f *fakeConfigs) Save(context.Context, *account.GatewayConfig) error { return nil }
func (f *fakeConfigs) FindByID(context.Context, int64, int64) (*account.GatewayConfig, error) {
	return f.gwCfg, nil
}
func (f *fakeConfigs) FindByWebhookToken(context.Context, string) (*account.GatewayConfig, error) {
	return f.gwCfg, nil
}
func (f *fakeConfigs) DecryptCredentials(*account.GatewayConfig) (gateway.Credentials, error) {
	return gateway.Credentials{"api_key": "sk_test"}, nil
}

type env struct {
	svc      *Service
	gw       *fakeGateway
	payments *fakePayments
	invoices *fakeInvoices
}

func newEnv(t *testing.T, gw *fakeGateway, p *payment.Payment) *env {
	t.Helper()

	payments := &fakePayments{row: p}
	invoices := &fakeInvoices{invoice: &invoice.Invoice{
		ID: p.InvoiceID, AccountID: p.AccountID, CurrencyCode: "USD",
		Balance: decimal.Zero,
	}}
	configs := &fakeConfigs{gwCfg: &account.GatewayConfig{
		ID: 3, AccountID: p.AccountID, Provider: "fake", IsActive: true,
	}}

	registry := gateway.NewRegistry()
	registry.Register(gateway.ProviderType("fake"), gw)

	return &env{
		svc:      NewService(registry, payments, invoices, configs),
		gw:       gw,
		payments: payments,
		invoices: invoices,
	}
}

func completedPayment(t *testing.T, amount string) *payment.Payment {
	t.Helper()
	p, err := payment.NewPayment(1, 42, 7, decimal.RequireFromString(amount), "txn_1")
	require.NoError(t, err)
	p.ID = 10
	p.GatewayConfigID = 3
	p.Type = payment.TypeVisa
	return p
}

func TestRefundClampsToCompletedAmount(t *testing.T) {
	gw := &fakeGateway{
		ops:        []gateway.Operation{gateway.OpRefund},
		refundResp: &gateway.Response{Successful: true},
	}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("80.00"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "50.00", gw.lastRefund.Amount.StringFixed(2))
	assert.Equal(t, payment.StatusRefunded, p.Status)
	assert.Equal(t, "50.00", e.invoices.invoice.Balance.StringFixed(2))
}

func TestRefundZeroAmountDefaultsToFullRefund(t *testing.T) {
	gw := &fakeGateway{
		ops:        []gateway.Operation{gateway.OpRefund},
		refundResp: &gateway.Response{Successful: true},
	}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, gw.refundCalls)
	assert.Equal(t, "50.00", gw.lastRefund.Amount.StringFixed(2))
	assert.Equal(t, payment.StatusRefunded, p.Status)
}

func TestRefundZeroAmountAfterPartialRefundsRemainder(t *testing.T) {
	gw := &fakeGateway{
		ops:        []gateway.Operation{gateway.OpRefund},
		refundResp: &gateway.Response{Successful: true},
	}
	p := completedPayment(t, "50.00")
	require.NoError(t, p.RecordRefund(decimal.RequireFromString("20.00")))
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "30.00", gw.lastRefund.Amount.StringFixed(2))
}

func TestRefundFullyRefundedPaymentIsNoOp(t *testing.T) {
	gw := &fakeGateway{ops: []gateway.Operation{gateway.OpRefund}}
	p := completedPayment(t, "50.00")
	require.NoError(t, p.RecordRefund(decimal.RequireFromString("50.00")))
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, gw.refundCalls)
}

func TestRefundPartial(t *testing.T) {
	gw := &fakeGateway{
		ops:        []gateway.Operation{gateway.OpRefund},
		refundResp: &gateway.Response{Successful: true},
	}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("20.00"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, payment.StatusPartiallyRefunded, p.Status)
	assert.Equal(t, "30.00", p.CompletedAmount().StringFixed(2))
	assert.Equal(t, "20.00", e.invoices.invoice.Balance.StringFixed(2))
}

func TestCreditRefundNeverTouchesGateway(t *testing.T) {
	gw := &fakeGateway{ops: []gateway.Operation{gateway.OpRefund}}
	p := completedPayment(t, "50.00")
	p.Type = payment.TypeCredit
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("20.00"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 0, gw.refundCalls)
	assert.Equal(t, "20.00", p.RefundedAmount.StringFixed(2))
	assert.Equal(t, "20.00", e.invoices.invoice.Balance.StringFixed(2))
}

func TestPartialRefundDeclineNeverVoids(t *testing.T) {
	gw := &fakeGateway{
		ops:        []gateway.Operation{gateway.OpRefund, gateway.OpVoid},
		refundResp: &gateway.Response{Successful: false, Message: "not settled"},
		voidResp:   &gateway.Response{Successful: true},
	}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("20.00"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 0, gw.voidCalls)
	assert.Equal(t, payment.StatusCompleted, p.Status)
	assert.True(t, e.invoices.invoice.Balance.IsZero())
}

func TestFullRefundDeclineFallsBackToVoid(t *testing.T) {
	gw := &fakeGateway{
		ops:        []gateway.Operation{gateway.OpRefund, gateway.OpVoid},
		refundResp: &gateway.Response{Successful: false, Message: "not settled"},
		voidResp:   &gateway.Response{Successful: true},
	}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1, gw.voidCalls)
	assert.Equal(t, payment.StatusVoided, p.Status)
	assert.Equal(t, "50.00", e.invoices.invoice.Balance.StringFixed(2))
}

func TestFullRefundDeclineWithoutVoidSupport(t *testing.T) {
	gw := &fakeGateway{
		ops:        []gateway.Operation{gateway.OpRefund},
		refundResp: &gateway.Response{Successful: false, Message: "not settled"},
	}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 0, gw.voidCalls)
	assert.Equal(t, payment.StatusCompleted, p.Status)
}

func TestVoidDeclineReportsFalse(t *testing.T) {
	gw := &fakeGateway{
		ops:        []gateway.Operation{gateway.OpRefund, gateway.OpVoid},
		refundResp: &gateway.Response{Successful: false, Message: "not settled"},
		voidResp:   &gateway.Response{Successful: false, Message: "already settled"},
	}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, payment.StatusCompleted, p.Status)
}

func TestRefundTransportErrorPropagates(t *testing.T) {
	gw := &fakeGateway{
		ops:       []gateway.Operation{gateway.OpRefund},
		refundErr: &gateway.Error{Code: gateway.ErrProviderTimeout, Message: "timeout"},
	}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	ok, err := e.svc.Refund(context.Background(), 1, 10, decimal.RequireFromString("20.00"))
	assert.False(t, ok)

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.ErrProviderTimeout, gwErr.Code)
	assert.Equal(t, payment.StatusCompleted, p.Status)
}

func TestRefundUnknownPayment(t *testing.T) {
	gw := &fakeGateway{ops: []gateway.Operation{gateway.OpRefund}}
	p := completedPayment(t, "50.00")
	e := newEnv(t, gw, p)

	_, err := e.svc.Refund(context.Background(), 1, 999, decimal.RequireFromString("20.00"))
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}
