// Package refund reverses recorded payments, in part or in full, against
// the gateway that took the original charge.
package refund

import (
	"context"
	"fmt"

	"payflow/internal/domain/account"
	"payflow/internal/domain/payment"
	"payflow/internal/gateway"
	"payflow/internal/store/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Service struct {
	registry *gateway.Registry
	payments repositories.PaymentRepository
	invoices repositories.InvoiceRepository
	configs  repositories.GatewayConfigRepository
}

func NewService(registry *gateway.Registry, payments repositories.PaymentRepository, invoices repositories.InvoiceRepository, configs repositories.GatewayConfigRepository) *Service {
	return &Service{registry: registry, payments: payments, invoices: invoices, configs: configs}
}

// Refund reverses up to amount of the payment. A zero amount means
// everything still refundable; an explicit amount is clamped to it. A zero
// effective amount (the payment is already fully refunded) is a no-op
// reported as false. A gateway decline also reports false without an error,
// except that a full-amount decline falls back to voiding when the provider
// supports it. Only transport and storage failures return an error.
func (s *Service) Refund(ctx context.Context, accountID, paymentID int64, amount decimal.Decimal) (bool, error) {
	p, err := s.payments.FindByID(ctx, accountID, paymentID)
	if err != nil {
		return false, err
	}

	if amount.IsZero() || amount.GreaterThan(p.CompletedAmount()) {
		amount = p.CompletedAmount()
	}
	if !amount.IsPositive() {
		return false, nil
	}

	if p.IsCredit() {
		// Store credit never touched a gateway; the reversal is purely
		// local bookkeeping.
		return true, s.applyRefund(ctx, p, amount)
	}

	gwCfg, err := s.configs.FindByID(ctx, accountID, p.GatewayConfigID)
	if err != nil {
		return false, err
	}
	g, err := s.registry.Get(gateway.ProviderType(gwCfg.Provider))
	if err != nil {
		return false, err
	}
	creds, err := s.configs.DecryptCredentials(gwCfg)
	if err != nil {
		return false, err
	}

	inv, err := s.invoices.FindByID(ctx, accountID, p.InvoiceID)
	if err != nil {
		return false, err
	}

	resp, err := g.Refund(ctx, creds, gateway.RefundRequest{
		TransactionRef: p.TransactionRef,
		Amount:         amount,
		Currency:       inv.CurrencyCode,
	})
	if err != nil {
		return false, err
	}

	if resp.Successful {
		log.Info().
			Int64("payment_id", p.ID).
			Str("amount", amount.StringFixed(2)).
			Str("transaction_ref", p.TransactionRef).
			Msg("refund completed")
		return true, s.applyRefund(ctx, p, amount)
	}

	// Some providers reject refunds on unsettled charges. When the caller
	// asked for the exact original amount, voiding reaches the same payer
	// outcome. Partial refunds never void; a void would reverse more than
	// requested.
	if amount.Equal(p.Amount) && gateway.Supports(g, gateway.OpVoid) {
		return s.voidFallback(ctx, g, creds, gwCfg, p)
	}

	log.Warn().
		Int64("payment_id", p.ID).
		Str("amount", amount.StringFixed(2)).
		Str("message", resp.Message).
		Msg("gateway declined refund")
	return false, nil
}

func (s *Service) voidFallback(ctx context.Context, g gateway.Gateway, creds gateway.Credentials, gwCfg *account.GatewayConfig, p *payment.Payment) (bool, error) {
	resp, err := g.Void(ctx, creds, gateway.VoidRequest{TransactionRef: p.TransactionRef})
	if err != nil {
		return false, err
	}
	if !resp.Successful {
		log.Warn().
			Int64("payment_id", p.ID).
			Str("message", resp.Message).
			Msg("gateway declined void after refund rejection")
		return false, nil
	}

	restored := p.CompletedAmount()
	p.MarkVoided()
	if err := s.payments.Save(ctx, p); err != nil {
		return false, err
	}
	if err := s.invoices.ApplyPayment(ctx, p.InvoiceID, restored.Neg()); err != nil {
		return false, fmt.Errorf("void recorded but balance not restored: %w", err)
	}

	log.Info().
		Int64("payment_id", p.ID).
		Str("provider", gwCfg.Provider).
		Str("transaction_ref", p.TransactionRef).
		Msg("payment voided in lieu of refund")
	return true, nil
}

// applyRefund records the refund on the payment and restores the refunded
// portion to the invoice balance.
func (s *Service) applyRefund(ctx context.Context, p *payment.Payment, amount decimal.Decimal) error {
	if err := p.RecordRefund(amount); err != nil {
		return err
	}
	if err := s.payments.Save(ctx, p); err != nil {
		return err
	}
	return s.invoices.ApplyPayment(ctx, p.InvoiceID, amount.Neg())
}
