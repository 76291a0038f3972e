package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	middlewarex "payflow/internal/http/middleware"
	"payflow/internal/services/refund"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type refundReq struct {
	Amount string `json:"amount"`
}

// RefundPayment reverses up to the requested amount of a payment. An omitted
// amount refunds everything still refundable. A gateway decline comes back
// as refunded=false with status 200; only transport and storage failures are
// errors.
func RefundPayment(refunds *refund.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middlewarex.AccountID(r.Context())
		if !ok {
			http.Error(w, "account not found", http.StatusUnauthorized)
			return
		}

		paymentID, err := strconv.ParseInt(chi.URLParam(r, "paymentID"), 10, 64)
		if err != nil {
			http.Error(w, "bad payment id", http.StatusBadRequest)
			return
		}

		var in refundReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		amount := decimal.Zero
		if in.Amount != "" {
			amount, err = decimal.NewFromString(in.Amount)
			if err != nil {
				http.Error(w, "bad amount", http.StatusBadRequest)
				return
			}
		}

		refunded, err := refunds.Refund(r.Context(), accountID, paymentID, amount)
		if err != nil {
			log.Error().Err(err).
				Int64("account_id", accountID).
				Int64("payment_id", paymentID).
				Str("amount", in.Amount).
				Msg("refund failed")
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"refunded": refunded})
	}
}
