package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	name string
	ops  []Operation
}

func (s *stubGateway) Name() string                                { return s.name }
func (s *stubGateway) SupportedOperations() []Operation            { return s.ops }
func (s *stubGateway) RequiredCredentialFields() []CredentialField { return nil }
func (s *stubGateway) Purchase(context.Context, Credentials, PurchaseRequest) (*Response, error) {
	return nil, ErrUnsupported
}
func (s *stubGateway) CompletePurchase(context.Context, Credentials, PurchaseRequest) (*Response, error) {
	return nil, ErrUnsupported
}
func (s *stubGateway) Refund(context.Context, Credentials, RefundRequest) (*Response, error) {
	return nil, ErrUnsupported
}
func (s *stubGateway) Void(context.Context, Credentials, VoidRequest) (*Response, error) {
	return nil, ErrUnsupported
}
func (s *stubGateway) CreateCustomer(context.Context, Credentials, CustomerRequest) (*Response, error) {
	return nil, ErrUnsupported
}
func (s *stubGateway) CreateToken(context.Context, Credentials, TokenRequest) (*Response, error) {
	return nil, ErrUnsupported
}
func (s *stubGateway) ParseWebhook([]byte, map[string]string, string) (WebhookEvent, error) {
	return WebhookEvent{}, ErrUnsupported
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	g := &stubGateway{name: "stub", ops: []Operation{OpPurchase}}
	r.Register(ProviderType("stub"), g)

	got, err := r.Get(ProviderType("stub"))
	require.NoError(t, err)
	assert.Equal(t, "stub", got.Name())

	assert.Len(t, r.List(), 1)
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get(ProviderCardstream)
	require.Error(t, err)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "provider_not_found", gwErr.Code)
}

func TestSupports(t *testing.T) {
	g := &stubGateway{ops: []Operation{OpPurchase, OpRefund}}
	assert.True(t, Supports(g, OpPurchase))
	assert.True(t, Supports(g, OpRefund))
	assert.False(t, Supports(g, OpVoid))
	assert.False(t, Supports(g, OpWebhook))
}
