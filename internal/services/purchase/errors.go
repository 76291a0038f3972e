package purchase

import "fmt"

// ValidationError reports a missing or malformed checkout field. The caller
// recovers by re-rendering the form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// GatewayError surfaces a provider decline, or a success response the
// orchestrator could not extract a transaction reference from.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return "payment error"
	}
	return e.Message
}
