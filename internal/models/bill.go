package models

import (
	"github.com/splitledger/splitledger/internal/money"
)

// SplitMethod selects how a bill's final amount is divided among participants.
type SplitMethod string

const (
	// SplitEqual divides the final amount evenly, remainder cents going to
	// the first participants in insertion order.
	SplitEqual SplitMethod = "equal"

	// SplitPercentage divides by each participant's declared percentage.
	SplitPercentage SplitMethod = "percentage"

	// SplitItemized divides by item assignments, with tax, tip and discount
	// allocated proportionally to each participant's item total.
	SplitItemized SplitMethod = "itemized"

	// SplitCustom uses each participant's declared fixed amount verbatim.
	SplitCustom SplitMethod = "custom"
)

// MaxParticipants caps how many people can be on a single bill.
const MaxParticipants = 20

// Valid reports whether m is one of the four supported methods.
func (m SplitMethod) Valid() bool {
	switch m {
	case SplitEqual, SplitPercentage, SplitItemized, SplitCustom:
		return true
	}
	return false
}

// Status is the lifecycle state of a bill.
//
// draft -> pending -> partial -> completed, with draft/pending/partial ->
// cancelled. completed and cancelled are terminal: no further edits,
// participants or payments are accepted.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further mutations are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Item represents a single line item on a bill.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// Name is the display name of the item (e.g. "Pizza", "Beer").
	Name string `json:"name"`

	// UnitPrice is the price of one unit.
	UnitPrice money.Money `json:"unit_price"`

	// Quantity is the number of units, always positive.
	Quantity int64 `json:"quantity"`

	// SharedBy lists the participant IDs splitting this item, in insertion
	// order. Must be non-empty while the item is on an active bill.
	SharedBy []string `json:"shared_by"`

	// TaxExempt excludes this item's total from the proportional tax base
	// on itemized splits.
	TaxExempt bool `json:"tax_exempt,omitempty"`
}

// Amount returns unit price times quantity.
func (i Item) Amount() money.Money {
	return i.UnitPrice.MulInt(i.Quantity)
}

// Bill represents a shared expense split among participants, together with
// its payment ledger and lifecycle state.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string `json:"id"`

	// GroupID links the bill to a group, empty for standalone bills.
	GroupID string `json:"group_id,omitempty"`

	// Title is the human-readable name for the bill.
	Title string `json:"title"`

	// Category is a free-form label ("dinner", "rent", ...).
	Category string `json:"category,omitempty"`

	// Currency is the single ISO 4217 code every monetary field on the bill
	// must use.
	Currency string `json:"currency"`

	// SplitMethod selects the allocation strategy.
	SplitMethod SplitMethod `json:"split_method"`

	// Subtotal is the declared pre-tax amount, used when the bill has no
	// items. When items are present the subtotal is derived from them.
	Subtotal money.Money `json:"subtotal"`

	// Items are the line items, in insertion order.
	Items []Item `json:"items"`

	// Participants are the people splitting the bill, in insertion order.
	// The order is significant: remainder cents are distributed to the
	// first participants, so it must be stable across recomputations.
	Participants []Participant `json:"participants"`

	// Tax, Tip and Discount adjust the subtotal. All non-negative.
	Tax      money.Money `json:"tax"`
	Tip      money.Money `json:"tip"`
	Discount money.Money `json:"discount"`

	// Payments is the append-only ledger of payment events.
	Payments []PaymentEvent `json:"payments"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// Version is a monotonic counter for optimistic concurrency. Every
	// accepted edit, payment or lifecycle transition increments it.
	Version int64 `json:"version"`

	// CreatedBy is the user ID that created the bill.
	CreatedBy string `json:"created_by,omitempty"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// EffectiveSubtotal is the amount tax, tip and discount apply to: the sum of
// the current items when any exist, otherwise the declared subtotal. Deriving
// from items keeps the total honest after item edits.
func (b *Bill) EffectiveSubtotal() money.Money {
	if len(b.Items) == 0 {
		return b.Subtotal
	}
	sum := money.Zero(b.Currency)
	for _, item := range b.Items {
		sum.Amount += item.Amount().Amount
	}
	return sum
}

// FinalAmount is subtotal + tax + tip - discount, always recomputed.
func (b *Bill) FinalAmount() money.Money {
	total := b.EffectiveSubtotal()
	total.Amount += b.Tax.Amount + b.Tip.Amount - b.Discount.Amount
	return total
}

// Participant returns the participant with the given ID, or nil.
func (b *Bill) Participant(id string) *Participant {
	for i := range b.Participants {
		if b.Participants[i].ID == id {
			return &b.Participants[i]
		}
	}
	return nil
}

// HasParticipant reports whether the given ID is on the bill.
func (b *Bill) HasParticipant(id string) bool {
	return b.Participant(id) != nil
}

// Clone returns a deep copy of the bill. Mutating code works on a clone so a
// rejected command leaves the original untouched.
func (b *Bill) Clone() *Bill {
	c := *b
	c.Items = make([]Item, len(b.Items))
	for i, item := range b.Items {
		c.Items[i] = item
		c.Items[i].SharedBy = append([]string(nil), item.SharedBy...)
	}
	c.Participants = append([]Participant(nil), b.Participants...)
	c.Payments = append([]PaymentEvent(nil), b.Payments...)
	return &c
}
