package httpx

import (
	"encoding/json"
	"net/http"

	"payflow/internal/config"
	"payflow/internal/gateway"
	"payflow/internal/http/handlers"
	middlewarex "payflow/internal/http/middleware"
	"payflow/internal/services/merchant"
	"payflow/internal/services/purchase"
	"payflow/internal/services/refund"
	"payflow/internal/services/token"
	"payflow/internal/services/webhook"
	"payflow/internal/store/repositories"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDependencies holds everything the HTTP layer needs.
type RouterDependencies struct {
	Config           config.Cfg
	PurchaseService  *purchase.Service
	RefundService    *refund.Service
	TokenService     *token.Service
	MerchantService  *merchant.Service
	WebhookProcessor *webhook.Processor
	GatewayRegistry  *gateway.Registry

	Accounts       repositories.AccountRepository
	Payments       repositories.PaymentRepository
	Events         repositories.EventRepository
	GatewayConfigs repositories.GatewayConfigRepository
}

// NewRouter wires the HTTP surface: admin onboarding, the authenticated
// merchant API, and the public payer-facing completion and webhook routes.
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	// Admin routes (protected by admin token)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.Config))

		r.Post("/accounts", handlers.OnboardAccount(deps.MerchantService))
		r.Post("/accounts/{accountID}/gateways", handlers.AddGateway(deps.MerchantService))
	})

	// Merchant API (protected by API key auth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarex.APIKeyAuth(deps.Accounts))

		r.Post("/checkouts", handlers.CreateCheckout(deps.PurchaseService))

		r.Get("/payments", handlers.ListPayments(deps.Payments))
		r.Post("/payments/{paymentID}/refunds", handlers.RefundPayment(deps.RefundService))

		r.Get("/events", handlers.ListEvents(deps.Events))

		r.Route("/clients/{clientID}/methods", func(r chi.Router) {
			r.Get("/", handlers.ListMethods(deps.TokenService))
			r.Post("/{methodID}/verify", handlers.VerifyMethod(deps.TokenService, deps.GatewayConfigs, deps.GatewayRegistry))
			r.Delete("/{methodID}", handlers.RemoveMethod(deps.TokenService))
		})
	})

	// Payer-facing completion route (public, keyed by invitation)
	r.Get("/complete/{invitationKey}", handlers.CompleteCheckout(deps.PurchaseService))

	// Webhook endpoints (public, validated by the provider adapter)
	r.Post("/webhooks/{token}", handlers.Webhook(deps.WebhookProcessor))

	return r
}
