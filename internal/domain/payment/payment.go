package payment

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the durable local record of a completed charge. It is created
// only after a gateway response is judged successful and is never deleted;
// refunds and voids are recorded as state.
type Payment struct {
	ID              int64
	AccountID       int64
	InvoiceID       int64
	ClientID        int64
	ContactID       int64
	GatewayConfigID int64
	PaymentMethodID *int64 // nil for one-off offsite payments
	Amount          decimal.Decimal
	RefundedAmount  decimal.Decimal
	Status          Status
	Type            Type
	TransactionRef  string

	// Payment-method attributes snapshotted at charge time; the method
	// itself can be deleted or re-tokenized afterwards.
	Last4         string
	Expiration    string
	RoutingNumber string
	BankName      string
	Email         string

	IP          string
	PaymentDate time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Status represents payment status.
type Status string

const (
	StatusCompleted         Status = "completed"
	StatusPartiallyRefunded Status = "partially_refunded"
	StatusRefunded          Status = "refunded"
	StatusVoided            Status = "voided"
)

// NewPayment creates a new payment with validation.
func NewPayment(accountID, invoiceID, clientID int64, amount decimal.Decimal, transactionRef string) (*Payment, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("invalid account ID: %d", accountID)
	}
	if invoiceID <= 0 {
		return nil, fmt.Errorf("invalid invoice ID: %d", invoiceID)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %s", amount)
	}
	if strings.TrimSpace(transactionRef) == "" {
		return nil, fmt.Errorf("transaction reference is required")
	}

	now := time.Now()
	return &Payment{
		AccountID:      accountID,
		InvoiceID:      invoiceID,
		ClientID:       clientID,
		Amount:         amount,
		RefundedAmount: decimal.Zero,
		Status:         StatusCompleted,
		TransactionRef: transactionRef,
		PaymentDate:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CompletedAmount is the portion of the charge not yet refunded or voided.
func (p *Payment) CompletedAmount() decimal.Decimal {
	if p.Status == StatusVoided {
		return decimal.Zero
	}
	return p.Amount.Sub(p.RefundedAmount)
}

// RecordRefund applies a refund against the payment. The amount must not
// exceed the completed amount; callers clamp before recording.
func (p *Payment) RecordRefund(amount decimal.Decimal) error {
	if p.Status == StatusVoided {
		return fmt.Errorf("payment %d is voided", p.ID)
	}
	if amount.GreaterThan(p.CompletedAmount()) {
		return fmt.Errorf("refund %s exceeds completed amount %s", amount, p.CompletedAmount())
	}
	p.RefundedAmount = p.RefundedAmount.Add(amount)
	if p.RefundedAmount.Equal(p.Amount) {
		p.Status = StatusRefunded
	} else {
		p.Status = StatusPartiallyRefunded
	}
	p.UpdatedAt = time.Now()
	return nil
}

// MarkVoided moves the payment to its voided terminal state, distinct from
// refunded.
func (p *Payment) MarkVoided() {
	p.Status = StatusVoided
	p.UpdatedAt = time.Now()
}

// IsCredit reports whether the payment was made with store credit rather
// than a real gateway charge.
func (p *Payment) IsCredit() bool {
	return p.Type == TypeCredit
}

// Type classifies how a payment was made.
type Type string

const (
	TypeCredit          Type = "credit"
	TypeACH             Type = "ach"
	TypePayPal          Type = "paypal"
	TypeVisa            Type = "visa"
	TypeMastercard      Type = "mastercard"
	TypeAmericanExpress Type = "american_express"
	TypeDiscover        Type = "discover"
	TypeJCB             Type = "jcb"
	TypeDiners          Type = "diners"
	TypeCarteBlanche    Type = "carte_blanche"
	TypeUnionPay        Type = "unionpay"
	TypeLaser           Type = "laser"
	TypeMaestro         Type = "maestro"
	TypeSolo            Type = "solo"
	TypeSwitch          Type = "switch"
	TypeOtherCard       Type = "other_card"
)

var cardTypes = map[string]Type{
	"visa":            TypeVisa,
	"americanexpress": TypeAmericanExpress,
	"amex":            TypeAmericanExpress,
	"mastercard":      TypeMastercard,
	"discover":        TypeDiscover,
	"jcb":             TypeJCB,
	"dinersclub":      TypeDiners,
	"carteblanche":    TypeCarteBlanche,
	"chinaunionpay":   TypeUnionPay,
	"unionpay":        TypeUnionPay,
	"laser":           TypeLaser,
	"maestro":         TypeMaestro,
	"solo":            TypeSolo,
	"switch":          TypeSwitch,
}

var cardNameCleaner = regexp.MustCompile(`[ \-_]`)

// ParseCardType maps a gateway-reported card brand name to a payment type.
// Some gateways append extra text after the brand, so a prefix match is
// attempted before falling back to the generic card type.
func ParseCardType(cardName string) Type {
	name := strings.ToLower(cardNameCleaner.ReplaceAllString(cardName, ""))

	if t, ok := cardTypes[name]; ok {
		return t
	}
	for prefix, t := range cardTypes {
		if strings.HasPrefix(name, prefix) {
			return t
		}
	}
	return TypeOtherCard
}
