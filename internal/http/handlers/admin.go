package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"payflow/internal/services/merchant"

	"github.com/go-chi/chi/v5"
)

// OnboardAccount creates a merchant account and its first API key. The
// plaintext key appears in this response and nowhere else.
func OnboardAccount(merchants *merchant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req merchant.OnboardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		resp, err := merchants.Onboard(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// AddGateway configures a payment gateway for an account.
func AddGateway(merchants *merchant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
		if err != nil {
			http.Error(w, "bad account id", http.StatusBadRequest)
			return
		}

		var req merchant.AddGatewayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		resp, err := merchants.AddGateway(r.Context(), accountID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}
