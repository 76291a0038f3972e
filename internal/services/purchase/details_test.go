package purchase

import (
	"testing"

	"payflow/internal/domain/checkout"
	"payflow/internal/domain/invoice"

	"github.com/stretchr/testify/assert"
)

func TestCardFromInputDropsPlaceholderCVV(t *testing.T) {
	client := &invoice.Client{Name: "Acme Ltd"}

	in := &checkout.CardInput{CardNumber: "4242", CVV: " "}
	card := cardFromInput(in, client)
	assert.Empty(t, card.CVV)

	in.CVV = ""
	assert.Empty(t, cardFromInput(in, client).CVV)

	in.CVV = "123"
	assert.Equal(t, "123", cardFromInput(in, client).CVV)
}

func TestCardFromInputMirrorsAddress(t *testing.T) {
	client := &invoice.Client{Name: "Acme Ltd"}
	in := &checkout.CardInput{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Address1:   "1 Main St",
		Address2:   "Suite 4",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		CountryID:  840,
	}

	card := cardFromInput(in, client)
	assert.Equal(t, "1 Main St", card.BillingAddress1)
	assert.Equal(t, "1 Main St", card.ShippingAddress1)
	assert.Equal(t, "Springfield", card.ShippingCity)
	assert.Equal(t, "US", card.BillingCountry)
	assert.Equal(t, "US", card.ShippingCountry)
	assert.Equal(t, "Acme Ltd", card.Company)
}

func TestCardFromInputNoAddressCaptured(t *testing.T) {
	client := &invoice.Client{Name: "Acme Ltd"}
	in := &checkout.CardInput{FirstName: "Ada", CardNumber: "4242"}

	card := cardFromInput(in, client)
	assert.Empty(t, card.BillingAddress1)
	assert.Empty(t, card.BillingCountry)
}

func TestCardFromInputUnknownCountryDegrades(t *testing.T) {
	client := &invoice.Client{Name: "Acme Ltd"}
	in := &checkout.CardInput{Address1: "1 Main St", CountryID: 99999}

	card := cardFromInput(in, client)
	assert.Equal(t, "1 Main St", card.BillingAddress1)
	assert.Empty(t, card.BillingCountry)
}

func TestCardFromClientProfile(t *testing.T) {
	client := &invoice.Client{
		Name:       "Acme Ltd",
		Address1:   "1 Main St",
		City:       "Springfield",
		PostalCode: "62701",
		CountryID:  826,
	}
	contact := &invoice.Contact{
		FirstName: "Ada", LastName: "Lovelace",
		Email: "ada@acme.test", Phone: "555-0100",
	}

	card := cardFromClient(client, contact)
	assert.Equal(t, "Ada", card.FirstName)
	assert.Equal(t, "ada@acme.test", card.Email)
	assert.Equal(t, "GB", card.BillingCountry)
	assert.Equal(t, "GB", card.ShippingCountry)
	assert.Equal(t, "1 Main St", card.ShippingAddress1)
	assert.Empty(t, card.Number)
}
