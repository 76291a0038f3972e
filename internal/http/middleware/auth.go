package middlewarex

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"payflow/internal/config"
	"payflow/internal/store/repositories"
)

// APIKeyAuth resolves the caller's account from a bearer API key. Only the
// key's hash ever reaches storage or the lookup.
func APIKeyAuth(accounts repositories.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			key := strings.TrimPrefix(auth, "Bearer ")
			h := sha256.Sum256([]byte(key))
			hx := hex.EncodeToString(h[:])

			acct, err := accounts.FindByAPIKeyHash(r.Context(), hx)
			if err != nil {
				http.Error(w, "invalid key", http.StatusUnauthorized)
				return
			}
			if !acct.IsActive() {
				http.Error(w, "account suspended", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), acct.ID)))
		})
	}
}

// AdminAuth guards onboarding endpoints with the static admin token.
func AdminAuth(cfg config.Cfg) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if cfg.Sec.AdminToken == "" ||
				subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Sec.AdminToken)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
