package purchase

import (
	"strings"

	"payflow/internal/domain/checkout"
	"payflow/internal/domain/country"
	"payflow/internal/domain/invoice"
	"payflow/internal/gateway"
)

// cardFromInput builds the canonical card structure from raw captured
// checkout input. The CVV is dropped when blank or the single-space
// placeholder some forms submit. The address, when captured, is mirrored to
// shipping because the system keeps a single address on file.
func cardFromInput(in *checkout.CardInput, client *invoice.Client) *gateway.Card {
	card := &gateway.Card{
		Company:     client.Name,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Number:      in.CardNumber,
		ExpiryMonth: in.ExpirationMonth,
		ExpiryYear:  in.ExpirationYear,
	}

	if cvv := strings.TrimSpace(in.CVV); cvv != "" {
		card.CVV = cvv
	}

	if in.Address1 != "" {
		code := country.Code(in.CountryID)
		card.BillingAddress1 = in.Address1
		card.BillingAddress2 = in.Address2
		card.BillingCity = in.City
		card.BillingState = in.State
		card.BillingPostcode = in.PostalCode
		card.BillingCountry = code
		card.ShippingAddress1 = in.Address1
		card.ShippingAddress2 = in.Address2
		card.ShippingCity = in.City
		card.ShippingState = in.State
		card.ShippingPostcode = in.PostalCode
		card.ShippingCountry = code
	}

	return card
}

// cardFromClient builds the canonical card structure from the client's
// stored profile, the last resort when neither raw input nor a stored
// method is available (offsite gateways that only need payer identity).
func cardFromClient(client *invoice.Client, contact *invoice.Contact) *gateway.Card {
	code := country.Code(client.CountryID)
	return &gateway.Card{
		Company:   client.Name,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Email:     contact.Email,
		Phone:     contact.Phone,

		BillingAddress1:  client.Address1,
		BillingAddress2:  client.Address2,
		BillingCity:      client.City,
		BillingState:     client.State,
		BillingPostcode:  client.PostalCode,
		BillingCountry:   code,
		ShippingAddress1: client.Address1,
		ShippingAddress2: client.Address2,
		ShippingCity:     client.City,
		ShippingState:    client.State,
		ShippingPostcode: client.PostalCode,
		ShippingCountry:  code,
	}
}
