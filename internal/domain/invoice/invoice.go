package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Invoice is the document a checkout pays down. Balance is maintained by the
// store when payments are recorded.
type Invoice struct {
	ID            int64
	AccountID     int64
	ClientID      int64
	Number        string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
	PartialAmount decimal.Decimal
	CurrencyCode  string
}

// RequestedAmount is what the current checkout attempt should charge: the
// partial amount when one is set, otherwise the outstanding balance.
func (i *Invoice) RequestedAmount() decimal.Decimal {
	if i.PartialAmount.IsPositive() {
		return i.PartialAmount
	}
	return i.Balance
}

// HasBalance reports whether anything is still owed.
func (i *Invoice) HasBalance() bool {
	return i.Balance.IsPositive()
}

// Client is the payer on record. The single address set on file doubles as
// both billing and shipping.
type Client struct {
	ID         int64
	AccountID  int64
	Name       string
	Address1   string
	Address2   string
	City       string
	State      string
	PostalCode string
	CountryID  int64
}

// Contact is the person reached for a given invoice.
type Contact struct {
	ID        int64
	ClientID  int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// FullName joins the contact's name parts, empty when neither is set.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
