package models

import (
	"encoding/json"

	"github.com/splitledger/splitledger/internal/money"
)

// Participant is one person's stake in a bill: their declared share inputs
// and the computed owed/paid state.
type Participant struct {
	// ID references a member (UUID format).
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// PercentBP is the declared percentage in basis points (hundredths of a
	// percent, 10000 == 100%). Only meaningful for percentage splits.
	PercentBP int64 `json:"percent_bp,omitempty"`

	// Share is the declared fixed amount. Only meaningful for custom splits.
	Share money.Money `json:"share,omitempty"`

	// AmountOwed is the allocation computed for the current bill state.
	AmountOwed money.Money `json:"amount_owed"`

	// AmountPaid is the sum of this participant's payment events.
	AmountPaid money.Money `json:"amount_paid"`
}

// Balance is amountPaid - amountOwed. Negative means the participant still
// owes money on this bill.
func (p *Participant) Balance() money.Money {
	return money.New(p.AmountPaid.Amount-p.AmountOwed.Amount, p.AmountOwed.Currency)
}

// Paid reports whether the participant has covered their allocation.
func (p *Participant) Paid() bool {
	return p.AmountPaid.Amount >= p.AmountOwed.Amount
}

// MarshalJSON adds the computed balance and paid flag so API clients do not
// have to re-derive them.
func (p Participant) MarshalJSON() ([]byte, error) {
	type alias Participant
	return json.Marshal(struct {
		alias
		Balance money.Money `json:"balance"`
		Paid    bool        `json:"paid"`
	}{
		alias:   alias(p),
		Balance: p.Balance(),
		Paid:    p.Paid(),
	})
}
