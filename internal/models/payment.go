package models

import (
	"github.com/splitledger/splitledger/internal/money"
)

// PaymentEvent records money a participant paid toward a bill.
//
// Events are append-only: they are never mutated or deleted once applied.
// A mistaken payment is corrected by recording a new event with a negative
// amount.
type PaymentEvent struct {
	// ID is the unique identifier for the event (UUID format).
	ID string `json:"id"`

	// ParticipantID is the participant the payment applies to.
	ParticipantID string `json:"participant_id"`

	// Amount is the payment amount. Negative for corrections.
	Amount money.Money `json:"amount"`

	// Method describes how the payment was made ("cash", "venmo", ...).
	Method string `json:"method,omitempty"`

	// Reference is an external identifier, e.g. a confirmation from the
	// payment-execution service.
	Reference string `json:"reference,omitempty"`

	// CreatedAt is the Unix timestamp when the event was recorded.
	CreatedAt int64 `json:"created_at"`
}
