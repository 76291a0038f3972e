// Package purchase orchestrates a single checkout attempt against an
// external gateway: initiation, the optional offsite redirect round trip,
// and the ledger write that records the completed charge.
package purchase

import (
	"context"
	"fmt"

	"payflow/internal/config"
	"payflow/internal/domain/account"
	"payflow/internal/domain/checkout"
	"payflow/internal/domain/customer"
	"payflow/internal/domain/invoice"
	"payflow/internal/domain/payment"
	"payflow/internal/gateway"
	"payflow/internal/services/token"
	"payflow/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// RedirectInstruction tells the caller to send the payer offsite.
type RedirectInstruction struct {
	URL string
}

// Result is the outcome of an initiation or completion. Exactly one of the
// branches is set: a recorded Payment, a RedirectInstruction, a Pending stop
// for two-step source verification, or Cancelled when the payer backed out
// offsite.
type Result struct {
	Payment   *payment.Payment
	Redirect  *RedirectInstruction
	Pending   *customer.PaymentMethod
	Cancelled bool
}

// PaymentHook runs after a payment is recorded. Hook failures are logged
// and never unwind the ledger write.
type PaymentHook func(ctx context.Context, p *payment.Payment)

type Service struct {
	cfg      config.Cfg
	registry *gateway.Registry
	payments repositories.PaymentRepository
	invoices repositories.InvoiceRepository
	configs  repositories.GatewayConfigRepository
	sessions repositories.SessionStore
	tokens   *token.Service

	onPaymentCreated []PaymentHook
}

func NewService(
	cfg config.Cfg,
	registry *gateway.Registry,
	payments repositories.PaymentRepository,
	invoices repositories.InvoiceRepository,
	configs repositories.GatewayConfigRepository,
	sessions repositories.SessionStore,
	tokens *token.Service,
) *Service {
	return &Service{
		cfg:      cfg,
		registry: registry,
		payments: payments,
		invoices: invoices,
		configs:  configs,
		sessions: sessions,
		tokens:   tokens,
	}
}

// OnPaymentCreated registers a post-payment hook (notifications, invoice
// status transitions). Hooks run after the ledger write commits.
func (s *Service) OnPaymentCreated(h PaymentHook) {
	s.onPaymentCreated = append(s.onPaymentCreated, h)
}

// InitiatePurchase runs one checkout attempt for the given session,
// persisting it so any pending reference survives the redirect round trip.
func (s *Service) InitiatePurchase(ctx context.Context, sess *checkout.Session) (*Result, error) {
	inv, err := s.invoices.FindByID(ctx, sess.AccountID, sess.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.HasBalance() {
		return nil, payment.ErrAlreadyPaid
	}

	// Persist the session before any gateway work so the completion path
	// can find it no matter how the payer comes back.
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}

	gwCfg, g, creds, err := s.resolveGateway(ctx, sess)
	if err != nil {
		return nil, err
	}

	client, err := s.invoices.ClientByID(ctx, sess.ClientID)
	if err != nil {
		return nil, err
	}
	contact, err := s.invoices.ContactByID(ctx, sess.ContactID)
	if err != nil {
		return nil, err
	}

	if sess.Input != nil {
		s.fillContactProfile(ctx, contact, sess.Input)
		if gwCfg.UpdateAddress && sess.Input.Address1 != "" {
			s.updateClientProfile(ctx, client, sess.Input)
		}
	}

	var method *customer.PaymentMethod
	switch {
	case sess.GatewayType == checkout.TypeToken:
		// Stored-token billing. The lookup is scoped to the session's
		// client; a foreign token is indistinguishable from a missing one.
		method, err = s.tokens.FindStoredMethod(ctx, sess.ClientID, sess.SourceID)
		if err != nil {
			return nil, err
		}
	case s.shouldCreateToken(g, gwCfg, sess):
		card := s.buildCard(sess, client, contact)
		method, err = s.tokens.CreateToken(ctx, g, creds, sess, card, contact)
		if err != nil {
			return nil, err
		}
		if sess.GatewayType == checkout.TypeBankTransfer && !method.UsableForCheckout() {
			// Two-step flow: the bank source needs out-of-band
			// verification before it can be charged. No gateway charge,
			// no payment.
			return &Result{Pending: method}, nil
		}
	}

	req := s.purchaseRequest(inv, sess, method, client, contact)

	resp, err := g.Purchase(ctx, creds, req)
	if err != nil {
		return nil, err
	}

	if resp.Redirect {
		if resp.RedirectURL == "" {
			return nil, &GatewayError{Message: "gateway requested redirect without a URL"}
		}
		sess.PendingRef = resp.TransactionRef
		if err := s.sessions.Put(ctx, sess); err != nil {
			return nil, err
		}
		log.Info().
			Str("gateway", g.Name()).
			Int64("invoice_id", sess.InvoiceID).
			Str("pending_ref", sess.PendingRef).
			Msg("redirecting payer offsite")
		return &Result{Redirect: &RedirectInstruction{URL: resp.RedirectURL}}, nil
	}

	if !resp.Successful {
		return nil, &GatewayError{Message: resp.Message}
	}

	ref := resolveReference(gwCfg, resp)
	if ref == "" {
		return nil, &GatewayError{Message: "gateway approved without a transaction reference"}
	}

	p, err := s.createPayment(ctx, sess, inv, gwCfg, method, resp, ref)
	if err != nil {
		return nil, err
	}
	return &Result{Payment: p}, nil
}

// CompleteOffsitePurchase finishes a redirect flow when the payer returns.
// The transaction reference comes from the callback when the provider sends
// one, otherwise from the reference stashed at initiation. Cancellation is
// an outcome, not an error.
func (s *Service) CompleteOffsitePurchase(ctx context.Context, invitationKey, callbackRef string) (*Result, error) {
	sess, err := s.sessions.Get(ctx, invitationKey)
	if err != nil {
		return nil, err
	}
	return s.completeSession(ctx, sess, callbackRef)
}

// CompleteByRef finishes a redirect flow from an asynchronous notification
// that only carries the provider reference.
func (s *Service) CompleteByRef(ctx context.Context, pendingRef string) (*Result, error) {
	sess, err := s.sessions.GetByRef(ctx, pendingRef)
	if err != nil {
		return nil, err
	}
	return s.completeSession(ctx, sess, pendingRef)
}

func (s *Service) completeSession(ctx context.Context, sess *checkout.Session, callbackRef string) (*Result, error) {
	ref := callbackRef
	if ref == "" {
		ref = sess.PendingRef
	}
	if ref == "" {
		return nil, &ValidationError{Field: "token", Message: "no transaction reference for completion"}
	}

	gwCfg, g, creds, err := s.resolveGateway(ctx, sess)
	if err != nil {
		return nil, err
	}

	inv, err := s.invoices.FindByID(ctx, sess.AccountID, sess.InvoiceID)
	if err != nil {
		return nil, err
	}

	resp := &gateway.Response{Successful: true, TransactionRef: ref}
	if gateway.Supports(g, gateway.OpCompletePurchase) {
		resp, err = g.CompletePurchase(ctx, creds, gateway.PurchaseRequest{
			Amount:   inv.RequestedAmount(),
			Currency: inv.CurrencyCode,
			Token:    ref,
			ClientIP: sess.ClientIP,
		})
		if err != nil {
			return nil, err
		}
	}

	if resp.Cancelled {
		_ = s.sessions.Delete(ctx, sess.InvitationKey)
		log.Info().
			Str("gateway", g.Name()).
			Int64("invoice_id", sess.InvoiceID).
			Msg("payer cancelled offsite checkout")
		return &Result{Cancelled: true}, nil
	}
	if !resp.Successful {
		return nil, &GatewayError{Message: resp.Message}
	}

	finalRef := resolveReference(gwCfg, resp)
	if finalRef == "" {
		finalRef = ref
	}

	// A paid invoice wins over a replayed reference. The dedup lookup runs
	// right before the insert; the storage uniqueness constraint backstops
	// the race between two concurrent completions.
	if !inv.HasBalance() {
		return nil, payment.ErrAlreadyPaid
	}
	exists, err := s.payments.ReferenceExists(ctx, sess.AccountID, finalRef)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, payment.ErrDuplicateTransaction
	}

	p, err := s.createPayment(ctx, sess, inv, gwCfg, nil, resp, finalRef)
	if err != nil {
		return nil, err
	}
	return &Result{Payment: p}, nil
}

// createPayment writes the ledger record, applies the invoice balance, and
// discards the session. The unique (account, reference) constraint turns a
// concurrent double completion into ErrDuplicateTransaction here.
func (s *Service) createPayment(ctx context.Context, sess *checkout.Session, inv *invoice.Invoice, gwCfg *account.GatewayConfig, method *customer.PaymentMethod, resp *gateway.Response, ref string) (*payment.Payment, error) {
	amount := inv.RequestedAmount()

	p, err := payment.NewPayment(sess.AccountID, sess.InvoiceID, sess.ClientID, amount, ref)
	if err != nil {
		return nil, err
	}
	p.ContactID = sess.ContactID
	p.GatewayConfigID = sess.GatewayConfigID
	p.IP = sess.ClientIP

	switch {
	case method != nil:
		p.PaymentMethodID = &method.ID
		p.Type = method.Type
		p.Last4 = method.Last4
		p.Expiration = method.Expiration
		p.RoutingNumber = method.RoutingNumber
		p.BankName = method.BankName
		p.Email = method.Email
	case resp.RoutingNumber != "":
		p.Type = payment.TypeACH
		p.Last4 = resp.Last4
		p.RoutingNumber = resp.RoutingNumber
		p.BankName = resp.BankName
	case resp.CardBrand != "":
		p.Type = payment.ParseCardType(resp.CardBrand)
		p.Last4 = resp.Last4
		p.Expiration = resp.Expiration
	case resp.Email != "":
		p.Type = payment.TypePayPal
		p.Email = resp.Email
	default:
		p.Type = payment.TypeOtherCard
	}

	if err := s.payments.Save(ctx, p); err != nil {
		return nil, err
	}
	if err := s.invoices.ApplyPayment(ctx, sess.InvoiceID, amount); err != nil {
		// The payment row exists; the balance write failed. Surface the
		// error, keep the row for reconciliation.
		log.Error().Err(err).
			Int64("payment_id", p.ID).
			Int64("invoice_id", sess.InvoiceID).
			Msg("payment recorded but invoice balance not applied")
		return nil, err
	}

	if err := s.sessions.Delete(ctx, sess.InvitationKey); err != nil {
		log.Warn().Err(err).
			Str("invitation_key", sess.InvitationKey).
			Msg("failed to discard completed checkout session")
	}

	log.Info().
		Int64("payment_id", p.ID).
		Int64("invoice_id", sess.InvoiceID).
		Str("transaction_ref", ref).
		Str("amount", amount.StringFixed(2)).
		Msg("payment recorded")

	for _, h := range s.onPaymentCreated {
		h(ctx, p)
	}
	return p, nil
}

// resolveGateway loads the session's gateway config, its adapter, and the
// decrypted credentials.
func (s *Service) resolveGateway(ctx context.Context, sess *checkout.Session) (*account.GatewayConfig, gateway.Gateway, gateway.Credentials, error) {
	gwCfg, err := s.configs.FindByID(ctx, sess.AccountID, sess.GatewayConfigID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !gwCfg.IsActive {
		return nil, nil, nil, fmt.Errorf("gateway config %d is disabled", gwCfg.ID)
	}
	g, err := s.registry.Get(gateway.ProviderType(gwCfg.Provider))
	if err != nil {
		return nil, nil, nil, err
	}
	creds, err := s.configs.DecryptCredentials(gwCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return gwCfg, g, creds, nil
}

// shouldCreateToken decides whether this attempt mints a reusable token.
// Bank transfers always tokenize (the source must be vaulted to charge it);
// otherwise the provider must support tokens and the account's billing mode
// plus the payer's opt-in decide.
func (s *Service) shouldCreateToken(g gateway.Gateway, gwCfg *account.GatewayConfig, sess *checkout.Session) bool {
	if sess.GatewayType == checkout.TypeBankTransfer {
		return true
	}
	if !gateway.Supports(g, gateway.OpCreateToken) {
		return false
	}
	switch gwCfg.TokenBilling {
	case account.TokenBillingAlways:
		return true
	case account.TokenBillingDisabled:
		return false
	default:
		return sess.Input != nil && sess.Input.TokenBilling
	}
}

// buildCard picks the richest detail source available: raw captured input,
// falling back to the client's stored profile.
func (s *Service) buildCard(sess *checkout.Session, client *invoice.Client, contact *invoice.Contact) *gateway.Card {
	if sess.Input != nil {
		return cardFromInput(sess.Input, client)
	}
	return cardFromClient(client, contact)
}

// purchaseRequest builds the canonical gateway request. Source priority:
// stored token, then raw card input, then the client profile for offsite
// providers that only need payer identity.
func (s *Service) purchaseRequest(inv *invoice.Invoice, sess *checkout.Session, method *customer.PaymentMethod, client *invoice.Client, contact *invoice.Contact) gateway.PurchaseRequest {
	req := gateway.PurchaseRequest{
		Amount:        inv.RequestedAmount(),
		Currency:      inv.CurrencyCode,
		ReturnURL:     fmt.Sprintf("%s/complete/%s", s.cfg.App.BaseURL, sess.InvitationKey),
		CancelURL:     fmt.Sprintf("%s/checkout/%s", s.cfg.App.BaseURL, sess.InvitationKey),
		Description:   fmt.Sprintf("Invoice %s", inv.Number),
		TransactionID: sess.IdempotencyKey,
		ClientIP:      sess.ClientIP,
	}

	switch {
	case method != nil:
		req.Token = method.SourceRef
	case sess.Input != nil:
		req.Card = cardFromInput(sess.Input, client)
	default:
		req.Card = cardFromClient(client, contact)
	}
	return req
}

// fillContactProfile copies captured payer details onto contact fields the
// profile left blank. Existing values are never overwritten. Failures are
// logged and never block the charge.
func (s *Service) fillContactProfile(ctx context.Context, contact *invoice.Contact, in *checkout.CardInput) {
	changed := false
	if contact.FirstName == "" && in.FirstName != "" {
		contact.FirstName = in.FirstName
		changed = true
	}
	if contact.LastName == "" && in.LastName != "" {
		contact.LastName = in.LastName
		changed = true
	}
	if contact.Email == "" && in.Email != "" {
		contact.Email = in.Email
		changed = true
	}
	if !changed {
		return
	}
	if err := s.invoices.UpdateContact(ctx, contact); err != nil {
		log.Warn().Err(err).Int64("contact_id", contact.ID).Msg("failed to update contact from checkout")
	}
}

// updateClientProfile writes the captured billing address back to the
// client record when the gateway config asks for it. Failures are logged
// and never block the charge.
func (s *Service) updateClientProfile(ctx context.Context, client *invoice.Client, in *checkout.CardInput) {
	client.Address1 = in.Address1
	client.Address2 = in.Address2
	client.City = in.City
	client.State = in.State
	client.PostalCode = in.PostalCode
	if in.CountryID > 0 {
		client.CountryID = in.CountryID
	}
	if err := s.invoices.UpdateClient(ctx, client); err != nil {
		log.Warn().Err(err).Int64("client_id", client.ID).Msg("failed to update client address from checkout")
	}
}

// resolveReference extracts the transaction reference, honoring a
// provider-specific response field when the gateway config names one.
func resolveReference(gwCfg *account.GatewayConfig, resp *gateway.Response) string {
	if gwCfg.ReferenceField != "" && resp.Raw != nil {
		if v, ok := resp.Raw[gwCfg.ReferenceField].(string); ok && v != "" {
			return v
		}
	}
	return resp.TransactionRef
}
