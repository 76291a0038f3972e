package gateway

import "errors"

// ErrUnsupported is returned for operations (including webhooks) a gateway
// does not implement. Logged, never retried.
var ErrUnsupported = errors.New("unsupported gateway operation")

// Error is a provider-level failure with a stable code.
type Error struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	ProviderErr string `json:"provider_error,omitempty"`
}

func (e *Error) Error() string {
	if e.ProviderErr != "" {
		return e.Message + ": " + e.ProviderErr
	}
	return e.Message
}

// Error codes
const (
	ErrInvalidCredentials = "invalid_credentials"
	ErrCardDeclined       = "card_declined"
	ErrInvalidRequest     = "invalid_request"
	ErrProviderTimeout    = "provider_timeout"
	ErrProviderDown       = "provider_down"
	ErrUnknown            = "unknown_error"
)
