// Package token manages gateway-side customers and reusable payment
// methods. A customer link is created lazily, at most once per
// (client, gateway config) pair; methods hang off that link.
package token

import (
	"context"
	"errors"
	"fmt"

	"payflow/internal/domain/checkout"
	"payflow/internal/domain/customer"
	"payflow/internal/domain/invoice"
	"payflow/internal/domain/payment"
	"payflow/internal/gateway"
	"payflow/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CustomerExistsCheck verifies that a stored gateway customer reference is
// still live on the provider side. Returning false forces recreation.
type CustomerExistsCheck func(ctx context.Context, g gateway.Gateway, creds gateway.Credentials, customerRef string) (bool, error)

type Service struct {
	customers repositories.CustomerRepository
	methods   repositories.MethodRepository

	existsChecks []CustomerExistsCheck
}

func NewService(customers repositories.CustomerRepository, methods repositories.MethodRepository) *Service {
	return &Service{customers: customers, methods: methods}
}

// OnCheckCustomerExists registers a liveness check run against stored
// customer references before they are reused.
func (s *Service) OnCheckCustomerExists(check CustomerExistsCheck) {
	s.existsChecks = append(s.existsChecks, check)
}

// GetOrCreateCustomer returns the gateway customer link for the session's
// client, creating one gateway-side and locally when none exists. When the
// provider cannot create customers the link is still persisted locally with
// an empty reference so methods have an owner.
func (s *Service) GetOrCreateCustomer(ctx context.Context, g gateway.Gateway, creds gateway.Credentials, sess *checkout.Session, contact *invoice.Contact) (*customer.Customer, error) {
	cust, err := s.customers.FindByClientAndConfig(ctx, sess.ClientID, sess.GatewayConfigID)
	if err == nil {
		if cust.GatewayCustomerRef == "" {
			return cust, nil
		}
		for _, check := range s.existsChecks {
			alive, checkErr := check(ctx, g, creds, cust.GatewayCustomerRef)
			if checkErr != nil {
				return nil, checkErr
			}
			if !alive {
				log.Warn().
					Str("gateway", g.Name()).
					Str("customer_ref", cust.GatewayCustomerRef).
					Msg("stored gateway customer no longer exists, recreating")
				return s.createCustomer(ctx, g, creds, sess, contact, cust)
			}
		}
		return cust, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	return s.createCustomer(ctx, g, creds, sess, contact, nil)
}

func (s *Service) createCustomer(ctx context.Context, g gateway.Gateway, creds gateway.Credentials, sess *checkout.Session, contact *invoice.Contact, existing *customer.Customer) (*customer.Customer, error) {
	cust := existing
	if cust == nil {
		var err error
		cust, err = customer.NewCustomer(sess.AccountID, sess.ClientID, sess.ContactID, sess.GatewayConfigID)
		if err != nil {
			return nil, err
		}
	}

	if gateway.Supports(g, gateway.OpCreateCustomer) {
		resp, err := g.CreateCustomer(ctx, creds, gateway.CustomerRequest{
			Email: contact.Email,
			Name:  contact.FullName(),
		})
		if err != nil {
			return nil, err
		}
		if !resp.Successful || resp.CustomerRef == "" {
			return nil, fmt.Errorf("gateway %s returned no customer reference: %s", g.Name(), resp.Message)
		}
		cust.GatewayCustomerRef = resp.CustomerRef
	}

	if err := s.customers.Save(ctx, cust); err != nil {
		return nil, err
	}
	return cust, nil
}

// CreateToken tokenizes the captured payment detail for later reuse. The
// first method stored for a customer becomes the default. Bank methods start
// unverified and are excluded from checkout until verification completes.
func (s *Service) CreateToken(ctx context.Context, g gateway.Gateway, creds gateway.Credentials, sess *checkout.Session, card *gateway.Card, contact *invoice.Contact) (*customer.PaymentMethod, error) {
	if !gateway.Supports(g, gateway.OpCreateToken) {
		return nil, gateway.ErrUnsupported
	}

	cust, err := s.GetOrCreateCustomer(ctx, g, creds, sess, contact)
	if err != nil {
		return nil, err
	}

	resp, err := g.CreateToken(ctx, creds, gateway.TokenRequest{
		CustomerRef: cust.GatewayCustomerRef,
		Card:        card,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Successful || resp.TokenRef == "" {
		return nil, fmt.Errorf("gateway %s returned no token reference: %s", g.Name(), resp.Message)
	}

	methodType := payment.ParseCardType(resp.CardBrand)
	if resp.RoutingNumber != "" {
		methodType = payment.TypeACH
	}

	method, err := customer.NewPaymentMethod(cust.ID, uuid.NewString(), resp.TokenRef, methodType)
	if err != nil {
		return nil, err
	}
	method.ContactID = sess.ContactID
	method.Last4 = resp.Last4
	method.Expiration = resp.Expiration
	method.RoutingNumber = resp.RoutingNumber
	method.BankName = resp.BankName
	method.Email = resp.Email
	method.IP = sess.ClientIP

	if cust.DefaultMethodID == nil {
		err = s.methods.SaveAsDefault(ctx, method, cust)
	} else {
		err = s.methods.Save(ctx, method)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("gateway", g.Name()).
		Int64("customer_id", cust.ID).
		Str("method_type", string(methodType)).
		Msg("payment method tokenized")
	return method, nil
}

// FindStoredMethod resolves a stored method by its public identifier,
// scoped to the owning client so one client can never bill another's token.
func (s *Service) FindStoredMethod(ctx context.Context, clientID int64, publicID string) (*customer.PaymentMethod, error) {
	return s.methods.FindByPublicID(ctx, clientID, publicID)
}

// StoredMethods lists the client's methods usable for one-click checkout.
// Unverified bank accounts are filtered out.
func (s *Service) StoredMethods(ctx context.Context, clientID, gatewayConfigID int64) ([]*customer.PaymentMethod, error) {
	cust, err := s.customers.FindByClientAndConfig(ctx, clientID, gatewayConfigID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	all, err := s.methods.FindByCustomerID(ctx, cust.ID)
	if err != nil {
		return nil, err
	}

	usable := all[:0]
	for _, m := range all {
		if m.UsableForCheckout() {
			usable = append(usable, m)
		}
	}
	return usable, nil
}

// VerifyBankAccount confirms micro-deposit amounts for a pending bank
// method. The lookup is client-scoped before any provider work so the
// unsupported case still cannot probe other clients' methods.
func (s *Service) VerifyBankAccount(ctx context.Context, g gateway.Gateway, creds gateway.Credentials, clientID int64, publicID string, _, _ int) error {
	method, err := s.methods.FindByPublicID(ctx, clientID, publicID)
	if err != nil {
		return err
	}
	if method.Status == customer.MethodStatusVerified {
		return nil
	}
	// None of the wired providers do micro-deposit verification yet.
	return gateway.ErrUnsupported
}

// RemoveMethod deletes a stored method after a client-scoped lookup.
func (s *Service) RemoveMethod(ctx context.Context, clientID int64, publicID string) error {
	method, err := s.methods.FindByPublicID(ctx, clientID, publicID)
	if err != nil {
		return err
	}
	return s.methods.Delete(ctx, method.ID)
}
