package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	middlewarex "payflow/internal/http/middleware"

	"payflow/internal/domain/customer"
	"payflow/internal/gateway"
	"payflow/internal/services/token"
	"payflow/internal/store/repositories"

	"github.com/go-chi/chi/v5"
)

type methodView struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Label  string `json:"label"`
	Last4  string `json:"last4,omitempty"`
}

func viewMethod(m *customer.PaymentMethod) methodView {
	return methodView{
		ID:     m.PublicID,
		Type:   string(m.Type),
		Status: string(m.Status),
		Label:  m.Label(),
		Last4:  m.Last4,
	}
}

// ListMethods returns the client's stored methods usable for checkout.
func ListMethods(tokens *token.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
		if err != nil {
			http.Error(w, "bad client id", http.StatusBadRequest)
			return
		}
		gwCfgID, err := strconv.ParseInt(r.URL.Query().Get("gateway_config_id"), 10, 64)
		if err != nil {
			http.Error(w, "gateway_config_id required", http.StatusBadRequest)
			return
		}

		methods, err := tokens.StoredMethods(r.Context(), clientID, gwCfgID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]methodView, 0, len(methods))
		for _, m := range methods {
			out = append(out, viewMethod(m))
		}
		writeJSON(w, http.StatusOK, map[string]any{"methods": out})
	}
}

type verifyReq struct {
	GatewayConfigID int64 `json:"gateway_config_id"`
	Amount1         int   `json:"amount1"`
	Amount2         int   `json:"amount2"`
}

// VerifyMethod confirms micro-deposit amounts for a pending bank method.
func VerifyMethod(tokens *token.Service, configs repositories.GatewayConfigRepository, registry *gateway.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middlewarex.AccountID(r.Context())
		if !ok {
			http.Error(w, "account not found", http.StatusUnauthorized)
			return
		}
		clientID, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
		if err != nil {
			http.Error(w, "bad client id", http.StatusBadRequest)
			return
		}
		methodID := chi.URLParam(r, "methodID")

		var in verifyReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		gwCfg, err := configs.FindByID(r.Context(), accountID, in.GatewayConfigID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		g, err := registry.Get(gateway.ProviderType(gwCfg.Provider))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		creds, err := configs.DecryptCredentials(gwCfg)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if err := tokens.VerifyBankAccount(r.Context(), g, creds, clientID, methodID, in.Amount1, in.Amount2); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "verified"})
	}
}

// RemoveMethod deletes a stored method.
func RemoveMethod(tokens *token.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
		if err != nil {
			http.Error(w, "bad client id", http.StatusBadRequest)
			return
		}
		methodID := chi.URLParam(r, "methodID")

		if err := tokens.RemoveMethod(r.Context(), clientID, methodID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
