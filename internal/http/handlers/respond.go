package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"payflow/internal/domain/payment"
	"payflow/internal/gateway"
	"payflow/internal/services/merchant"
	"payflow/internal/services/purchase"
	"payflow/internal/store/repositories"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service errors to HTTP statuses. Dedup and
// already-paid rejections are both conflicts but stay distinguishable in
// the body.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *purchase.ValidationError
	var mErr *merchant.ValidationError
	var gErr *purchase.GatewayError
	var provErr *gateway.Error

	switch {
	case errors.As(err, &vErr):
		http.Error(w, vErr.Error(), http.StatusBadRequest)
	case errors.As(err, &mErr):
		http.Error(w, mErr.Error(), http.StatusBadRequest)
	case errors.Is(err, repositories.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, payment.ErrDuplicateTransaction):
		http.Error(w, "duplicate transaction reference", http.StatusConflict)
	case errors.Is(err, payment.ErrAlreadyPaid):
		http.Error(w, "invoice already paid", http.StatusConflict)
	case errors.Is(err, gateway.ErrUnsupported):
		http.Error(w, "operation not supported by gateway", http.StatusUnprocessableEntity)
	case errors.As(err, &gErr):
		http.Error(w, gErr.Error(), http.StatusPaymentRequired)
	case errors.As(err, &provErr):
		http.Error(w, provErr.Message, http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type paymentView struct {
	ID             int64  `json:"id"`
	InvoiceID      int64  `json:"invoice_id"`
	ClientID       int64  `json:"client_id"`
	Amount         string `json:"amount"`
	RefundedAmount string `json:"refunded_amount"`
	Status         string `json:"status"`
	Type           string `json:"type"`
	TransactionRef string `json:"transaction_ref"`
	Last4          string `json:"last4,omitempty"`
	Expiration     string `json:"expiration,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
	Email          string `json:"email,omitempty"`
	PaymentDate    string `json:"payment_date"`
}

func viewPayment(p *payment.Payment) paymentView {
	return paymentView{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		ClientID:       p.ClientID,
		Amount:         p.Amount.StringFixed(2),
		RefundedAmount: p.RefundedAmount.StringFixed(2),
		Status:         string(p.Status),
		Type:           string(p.Type),
		TransactionRef: p.TransactionRef,
		Last4:          p.Last4,
		Expiration:     p.Expiration,
		BankName:       p.BankName,
		Email:          p.Email,
		PaymentDate:    p.PaymentDate.Format(time.RFC3339),
	}
}

// clientIP extracts the payer address, preferring the first forwarded hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
