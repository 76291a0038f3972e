package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	middlewarex "payflow/internal/http/middleware"

	"payflow/internal/domain/checkout"
	"payflow/internal/services/purchase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type checkoutReq struct {
	InvitationKey   string              `json:"invitation_key"`
	InvoiceID       int64               `json:"invoice_id"`
	ClientID        int64               `json:"client_id"`
	ContactID       int64               `json:"contact_id"`
	GatewayConfigID int64               `json:"gateway_config_id"`
	GatewayType     string              `json:"gateway_type"`
	SourceID        string              `json:"source_id,omitempty"`
	Input           *checkout.CardInput `json:"input,omitempty"`
}

// CreateCheckout starts one payment attempt: an onsite charge, a stored
// token charge, or the first leg of an offsite redirect.
func CreateCheckout(purchases *purchase.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middlewarex.AccountID(r.Context())
		if !ok {
			http.Error(w, "account not found", http.StatusUnauthorized)
			return
		}

		var in checkoutReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		gwType := checkout.GatewayType(in.GatewayType)
		switch gwType {
		case checkout.TypeCreditCard, checkout.TypeBankTransfer, checkout.TypeToken, checkout.TypeOffsite:
		default:
			http.Error(w, "unknown gateway_type", http.StatusBadRequest)
			return
		}
		if gwType == checkout.TypeToken && in.SourceID == "" {
			http.Error(w, "source_id required for token checkout", http.StatusBadRequest)
			return
		}
		if (gwType == checkout.TypeCreditCard || gwType == checkout.TypeBankTransfer) && in.Input == nil {
			http.Error(w, "input required for card checkout", http.StatusBadRequest)
			return
		}

		sess, err := checkout.NewSession(in.InvitationKey, accountID, in.InvoiceID,
			in.ClientID, in.ContactID, in.GatewayConfigID, gwType)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sess.Input = in.Input
		sess.SourceID = in.SourceID
		sess.ClientIP = clientIP(r)

		// Bounded context for the gateway round trip.
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		res, err := purchases.InitiatePurchase(ctx, sess)
		if err != nil {
			log.Error().Err(err).
				Int64("account_id", accountID).
				Int64("invoice_id", in.InvoiceID).
				Str("gateway_type", in.GatewayType).
				Msg("checkout initiation failed")
			writeServiceError(w, err)
			return
		}

		switch {
		case res.Redirect != nil:
			writeJSON(w, http.StatusOK, map[string]any{
				"status":       "redirect",
				"redirect_url": res.Redirect.URL,
			})
		case res.Pending != nil:
			writeJSON(w, http.StatusAccepted, map[string]any{
				"status":    "verification_pending",
				"method_id": res.Pending.PublicID,
			})
		default:
			writeJSON(w, http.StatusCreated, map[string]any{
				"status":  "completed",
				"payment": viewPayment(res.Payment),
			})
		}
	}
}

// CompleteCheckout is where the payer lands coming back from an offsite
// provider. Public: the invitation key plus the provider reference are the
// only credentials a returning payer has.
func CompleteCheckout(purchases *purchase.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invitationKey := chi.URLParam(r, "invitationKey")
		ref := r.URL.Query().Get("token")
		if ref == "" {
			ref = r.URL.Query().Get("ref")
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		res, err := purchases.CompleteOffsitePurchase(ctx, invitationKey, ref)
		if err != nil {
			log.Error().Err(err).
				Str("invitation_key", invitationKey).
				Msg("offsite completion failed")
			writeServiceError(w, err)
			return
		}

		if res.Cancelled {
			writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "completed",
			"payment": viewPayment(res.Payment),
		})
	}
}
