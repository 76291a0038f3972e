// Package webhook turns inbound provider notifications into ledger writes.
// Every accepted delivery is persisted before processing so a crash between
// parse and completion never loses it.
package webhook

import (
	"context"
	"errors"

	"payflow/internal/domain/event"
	"payflow/internal/domain/payment"
	"payflow/internal/gateway"
	"payflow/internal/services/purchase"
	"payflow/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

type Processor struct {
	configs   repositories.GatewayConfigRepository
	events    repositories.EventRepository
	registry  *gateway.Registry
	purchases *purchase.Service
}

func NewProcessor(configs repositories.GatewayConfigRepository, events repositories.EventRepository, registry *gateway.Registry, purchases *purchase.Service) *Processor {
	return &Processor{configs: configs, events: events, registry: registry, purchases: purchases}
}

// Process authenticates and handles one webhook delivery. The routing token
// identifies the gateway config; the adapter validates the provider's own
// signature material. gateway.ErrUnsupported means the event kind is one we
// deliberately ignore.
func (p *Processor) Process(ctx context.Context, routingToken string, body []byte, headers map[string]string) error {
	gwCfg, err := p.configs.FindByWebhookToken(ctx, routingToken)
	if err != nil {
		return err
	}
	g, err := p.registry.Get(gateway.ProviderType(gwCfg.Provider))
	if err != nil {
		return err
	}

	whEvent, err := g.ParseWebhook(body, headers, gwCfg.WebhookToken)
	if err != nil {
		return err
	}

	evt, err := event.NewEvent(gwCfg.AccountID, gwCfg.ID, whEvent.Kind, whEvent.TransactionRef, whEvent.Raw)
	if err != nil {
		return err
	}
	if err := p.events.Save(ctx, evt); err != nil {
		return err
	}

	switch whEvent.Kind {
	case event.KindPurchaseCompleted:
		err = p.completePurchase(ctx, whEvent.TransactionRef)
	case event.KindPurchaseFailed, event.KindRefundCompleted, event.KindSourceVerified:
		// Recorded for audit; no local state change is driven from these,
		// the synchronous paths already did the ledger work.
		log.Info().
			Str("kind", string(whEvent.Kind)).
			Str("transaction_ref", whEvent.TransactionRef).
			Msg("webhook event recorded")
	}

	if err != nil {
		evt.MarkProcessed(event.ProcessingFailed, err.Error())
		if saveErr := p.events.Save(ctx, evt); saveErr != nil {
			log.Error().Err(saveErr).Int64("event_id", evt.ID).Msg("failed to mark webhook event failed")
		}
		return err
	}

	evt.MarkProcessed(event.ProcessingCompleted, "")
	return p.events.Save(ctx, evt)
}

// completePurchase drives the notification through the same completion path
// the return redirect uses, so the dedup guard and balance check apply
// identically. A replayed delivery is a benign no-op.
func (p *Processor) completePurchase(ctx context.Context, transactionRef string) error {
	_, err := p.purchases.CompleteByRef(ctx, transactionRef)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, payment.ErrDuplicateTransaction), errors.Is(err, payment.ErrAlreadyPaid):
		log.Info().
			Str("transaction_ref", transactionRef).
			Msg("webhook completion already recorded, ignoring replay")
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		// The session expired or the return redirect already consumed it.
		log.Warn().
			Str("transaction_ref", transactionRef).
			Msg("webhook completion has no matching checkout session")
		return nil
	default:
		return err
	}
}
