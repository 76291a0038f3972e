package handlers

import (
	"net/http"
	"strconv"
	"time"

	middlewarex "payflow/internal/http/middleware"
	"payflow/internal/store/repositories"
)

func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// ListPayments returns the account's payment ledger, newest first.
func ListPayments(payments repositories.PaymentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middlewarex.AccountID(r.Context())
		if !ok {
			http.Error(w, "account not found", http.StatusUnauthorized)
			return
		}
		limit, offset := pageParams(r)

		list, err := payments.FindByAccountID(r.Context(), accountID, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]paymentView, 0, len(list))
		for _, p := range list {
			out = append(out, viewPayment(p))
		}
		writeJSON(w, http.StatusOK, map[string]any{"payments": out})
	}
}

type eventView struct {
	ID             int64  `json:"id"`
	Kind           string `json:"kind"`
	TransactionRef string `json:"transaction_ref"`
	Status         string `json:"status"`
	FailureReason  string `json:"failure_reason,omitempty"`
	ReceivedAt     string `json:"received_at"`
}

// ListEvents returns the account's webhook event log, newest first.
func ListEvents(events repositories.EventRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middlewarex.AccountID(r.Context())
		if !ok {
			http.Error(w, "account not found", http.StatusUnauthorized)
			return
		}
		limit, offset := pageParams(r)

		list, err := events.FindByAccountID(r.Context(), accountID, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]eventView, 0, len(list))
		for _, e := range list {
			out = append(out, eventView{
				ID:             e.ID,
				Kind:           string(e.Kind),
				TransactionRef: e.TransactionRef,
				Status:         string(e.Status),
				FailureReason:  e.FailureReason,
				ReceivedAt:     e.ReceivedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": out})
	}
}
