package event

import (
	"fmt"
	"strings"
	"time"
)

// Event is an inbound gateway webhook, persisted before processing so a
// delivery is never lost between parse and ledger write.
type Event struct {
	ID              int64
	AccountID       int64
	GatewayConfigID int64
	Kind            Kind
	TransactionRef  string
	RawJSON         []byte
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
	Status          ProcessingStatus
	FailureReason   string
}

// Kind classifies what the gateway is reporting.
type Kind string

const (
	KindPurchaseCompleted Kind = "purchase_completed"
	KindPurchaseFailed    Kind = "purchase_failed"
	KindRefundCompleted   Kind = "refund_completed"
	KindSourceVerified    Kind = "source_verified"
)

// ProcessingStatus tracks the event through the completion path.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// NewEvent creates a webhook event with validation.
func NewEvent(accountID, gatewayConfigID int64, kind Kind, transactionRef string, rawJSON []byte) (*Event, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("invalid account ID: %d", accountID)
	}
	if gatewayConfigID <= 0 {
		return nil, fmt.Errorf("invalid gateway config ID: %d", gatewayConfigID)
	}
	if strings.TrimSpace(transactionRef) == "" {
		return nil, fmt.Errorf("transaction reference is required")
	}

	return &Event{
		AccountID:       accountID,
		GatewayConfigID: gatewayConfigID,
		Kind:            kind,
		TransactionRef:  transactionRef,
		RawJSON:         rawJSON,
		ReceivedAt:      time.Now(),
		Status:          ProcessingPending,
	}, nil
}

// MarkProcessed records the processing outcome.
func (e *Event) MarkProcessed(status ProcessingStatus, reason string) {
	e.Status = status
	e.FailureReason = reason
	now := time.Now()
	e.ProcessedAt = &now
}

// IsProcessed reports whether the event has reached a terminal state.
func (e *Event) IsProcessed() bool {
	return e.Status == ProcessingCompleted || e.Status == ProcessingFailed
}
