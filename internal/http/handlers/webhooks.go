package handlers

import (
	"errors"
	"io"
	"net/http"

	"payflow/internal/gateway"
	"payflow/internal/services/webhook"
	"payflow/internal/store/repositories"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxWebhookBody = 1 << 20

// Webhook receives provider notifications. The path token routes to a
// gateway config; the adapter validates the provider's own auth material.
// Event kinds we deliberately ignore still get a 200 so the provider stops
// redelivering them.
func Webhook(processor *webhook.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routingToken := chi.URLParam(r, "token")

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}

		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}

		err = processor.Process(r.Context(), routingToken, body, headers)
		var provErr *gateway.Error
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		case errors.Is(err, gateway.ErrUnsupported):
			writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		case errors.Is(err, repositories.ErrNotFound):
			http.Error(w, "unknown webhook token", http.StatusNotFound)
		case errors.As(err, &provErr) && provErr.Code == gateway.ErrInvalidCredentials:
			http.Error(w, "webhook authentication failed", http.StatusUnauthorized)
		case errors.As(err, &provErr) && provErr.Code == gateway.ErrInvalidRequest:
			http.Error(w, provErr.Message, http.StatusBadRequest)
		default:
			log.Error().Err(err).Msg("webhook processing failed")
			http.Error(w, "processing failed", http.StatusInternalServerError)
		}
	}
}
