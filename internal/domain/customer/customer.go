package customer

import (
	"fmt"
	"strings"
	"time"

	"payflow/internal/domain/payment"
)

// Customer is the durable link between a local client and a gateway-side
// customer record. Created lazily, at most once per (client, gateway config)
// pair, and reused by token-billing flows.
type Customer struct {
	ID                 int64
	AccountID          int64
	ClientID           int64
	ContactID          int64
	GatewayConfigID    int64
	GatewayCustomerRef string
	DefaultMethodID    *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewCustomer creates a gateway customer link with validation.
func NewCustomer(accountID, clientID, contactID, gatewayConfigID int64) (*Customer, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("invalid account ID: %d", accountID)
	}
	if clientID <= 0 {
		return nil, fmt.Errorf("invalid client ID: %d", clientID)
	}
	if gatewayConfigID <= 0 {
		return nil, fmt.Errorf("invalid gateway config ID: %d", gatewayConfigID)
	}

	now := time.Now()
	return &Customer{
		AccountID:       accountID,
		ClientID:        clientID,
		ContactID:       contactID,
		GatewayConfigID: gatewayConfigID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// MethodStatus tracks out-of-band verification for bank methods.
type MethodStatus string

const (
	MethodStatusNew      MethodStatus = "new"
	MethodStatusPending  MethodStatus = "pending"
	MethodStatusVerified MethodStatus = "verified"
)

// PaymentMethod is a tokenized card or bank account owned by a Customer.
// Many methods per customer; exactly one may be the customer's default.
type PaymentMethod struct {
	ID            int64
	CustomerID    int64
	ContactID     int64
	PublicID      string
	SourceRef     string
	Type          payment.Type
	Status        MethodStatus
	Last4         string
	Expiration    string
	RoutingNumber string
	BankName      string
	Email         string
	IP            string
	CreatedAt     time.Time
}

// NewPaymentMethod creates a tokenized payment method with validation.
func NewPaymentMethod(customerID int64, publicID, sourceRef string, methodType payment.Type) (*PaymentMethod, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("invalid customer ID: %d", customerID)
	}
	if strings.TrimSpace(publicID) == "" {
		return nil, fmt.Errorf("public ID is required")
	}
	if strings.TrimSpace(sourceRef) == "" {
		return nil, fmt.Errorf("source reference is required")
	}

	status := MethodStatusVerified
	if methodType == payment.TypeACH {
		// Bank accounts stay unusable until micro-deposit verification.
		status = MethodStatusNew
	}

	return &PaymentMethod{
		CustomerID: customerID,
		PublicID:   publicID,
		SourceRef:  sourceRef,
		Type:       methodType,
		Status:     status,
		CreatedAt:  time.Now(),
	}, nil
}

// UsableForCheckout reports whether the method can be offered for one-click
// payment. Unverified bank accounts are excluded.
func (m *PaymentMethod) UsableForCheckout() bool {
	if m.Type == payment.TypeACH {
		return m.Status == MethodStatusVerified
	}
	return true
}

// MarkVerified completes bank verification.
func (m *PaymentMethod) MarkVerified() {
	m.Status = MethodStatusVerified
}

// Label is the short display name for a stored method.
func (m *PaymentMethod) Label() string {
	switch {
	case m.Type == payment.TypeACH && m.BankName != "":
		return m.BankName
	case m.Type == payment.TypeACH:
		return "bank account on file"
	case m.Type == payment.TypePayPal:
		return "PayPal: " + m.Email
	default:
		return "card on file"
	}
}
