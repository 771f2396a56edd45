// Package ledger owns a bill's mutable state across its lifetime.
//
// Edits replace every participant's owed amount by re-running the allocator;
// payments append to the event log and recompute paid amounts. Both advance
// the bill's lifecycle state machine. Operations work on a deep copy and
// either fully apply or return an error with the original untouched.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/splitledger/splitledger/internal/allocator"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

var (
	// ErrBillLocked is returned when a mutation reaches a bill that no
	// longer accepts it: terminal bills reject everything, and payments or
	// participant changes are restricted by status.
	ErrBillLocked = errors.New("bill does not accept this operation in its current status")

	// ErrUnknownParticipant is returned for payments or edits referencing a
	// participant that is not on the bill.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrUnknownItem is returned for edits referencing an item that is not
	// on the bill.
	ErrUnknownItem = errors.New("unknown item")

	// ErrDuplicateParticipant is returned when adding a participant whose
	// ID is already on the bill.
	ErrDuplicateParticipant = errors.New("participant already on bill")

	// ErrTooManyParticipants is returned when adding a participant to a
	// bill already at the cap.
	ErrTooManyParticipants = fmt.Errorf("a bill supports at most %d participants", models.MaxParticipants)

	// ErrNoParticipants is returned when finalizing a bill with nobody on it.
	ErrNoParticipants = allocator.ErrNoParticipants
)

// ApplyEdit returns a copy of the bill with the edit applied and every
// participant's owed amount recomputed. Paid amounts and the payment log are
// untouched. Fails with ErrBillLocked once the bill is terminal.
//
// A draft with no participants yet skips the recomputation, so bills can be
// assembled items-first; Finalize still requires at least one participant.
func ApplyEdit(bill *models.Bill, edit Edit) (*models.Bill, error) {
	if bill.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %s", ErrBillLocked, bill.Status)
	}

	next := bill.Clone()
	if err := applyMutation(next, edit); err != nil {
		return nil, err
	}
	if len(next.Participants) > 0 {
		if err := Reallocate(next); err != nil {
			return nil, err
		}
	}
	refreshStatus(next)
	next.UpdatedAt = time.Now().Unix()
	return next, nil
}

// ApplyPayment appends the event, recomputes the participant's paid amount
// and balance, and advances the bill status. Payments are only accepted
// between finalization and completion.
//
// Event IDs make retries idempotent: resubmitting an event whose ID is
// already on the log returns the bill unchanged instead of counting the
// money twice. The dedupe lives here, where paid amounts are computed, so
// storage never sees a log the ledger did not accept.
func ApplyPayment(bill *models.Bill, event models.PaymentEvent) (*models.Bill, error) {
	if event.ID == "" {
		return nil, errors.New("payment event id is required")
	}
	for _, e := range bill.Payments {
		if e.ID == event.ID {
			return bill.Clone(), nil
		}
	}
	if bill.Status.Terminal() || bill.Status == models.StatusDraft {
		return nil, fmt.Errorf("%w: status %s", ErrBillLocked, bill.Status)
	}
	if !bill.HasParticipant(event.ParticipantID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParticipant, event.ParticipantID)
	}
	// A payment without a currency is taken in the bill's currency; a
	// conflicting one is rejected.
	if event.Amount.Currency == "" {
		event.Amount.Currency = bill.Currency
	}
	if event.Amount.Currency != bill.Currency {
		return nil, fmt.Errorf("%w: payment is %s, bill is %s",
			money.ErrCurrencyMismatch, event.Amount.Currency, bill.Currency)
	}

	next := bill.Clone()
	next.Payments = append(next.Payments, event)

	p := next.Participant(event.ParticipantID)
	var paid int64
	for _, e := range next.Payments {
		if e.ParticipantID == p.ID {
			paid += e.Amount.Amount
		}
	}
	p.AmountPaid = money.New(paid, next.Currency)

	refreshStatus(next)
	next.UpdatedAt = time.Now().Unix()
	return next, nil
}

// Finalize moves a draft bill to pending. Requires at least one participant
// and a definition the allocator accepts.
func Finalize(bill *models.Bill) (*models.Bill, error) {
	if bill.Status != models.StatusDraft {
		return nil, fmt.Errorf("%w: status %s", ErrBillLocked, bill.Status)
	}
	if len(bill.Participants) == 0 {
		return nil, ErrNoParticipants
	}

	next := bill.Clone()
	if err := Reallocate(next); err != nil {
		return nil, err
	}
	next.Status = models.StatusPending
	refreshStatus(next) // a zero-amount bill completes immediately
	next.UpdatedAt = time.Now().Unix()
	return next, nil
}

// Cancel moves any pre-completion bill to cancelled.
func Cancel(bill *models.Bill) (*models.Bill, error) {
	if bill.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %s", ErrBillLocked, bill.Status)
	}
	next := bill.Clone()
	next.Status = models.StatusCancelled
	next.UpdatedAt = time.Now().Unix()
	return next, nil
}

// Reallocate re-runs the allocator and replaces every participant's owed
// amount in place.
func Reallocate(bill *models.Bill) error {
	allocations, err := allocator.Allocate(bill)
	if err != nil {
		return err
	}
	for i := range bill.Participants {
		bill.Participants[i].AmountOwed = allocations[i].Amount
	}
	return nil
}

// NetBalance is the total still owed across all participants: the sum of
// each unpaid participant's shortfall. A signed sum is useless here since it
// cancels to zero by construction once everyone pays.
func NetBalance(bill *models.Bill) money.Money {
	outstanding := money.Zero(bill.Currency)
	for i := range bill.Participants {
		if short := bill.Participants[i].Balance(); short.IsNegative() {
			outstanding.Amount -= short.Amount
		}
	}
	return outstanding
}

// refreshStatus advances pending/partial bills per the state machine. Draft
// and terminal statuses are left alone.
func refreshStatus(bill *models.Bill) {
	if bill.Status != models.StatusPending && bill.Status != models.StatusPartial {
		return
	}
	allPaid := true
	for i := range bill.Participants {
		if !bill.Participants[i].Paid() {
			allPaid = false
			break
		}
	}
	switch {
	case allPaid:
		bill.Status = models.StatusCompleted
	case len(bill.Payments) > 0:
		bill.Status = models.StatusPartial
	default:
		bill.Status = models.StatusPending
	}
}

func applyMutation(bill *models.Bill, edit Edit) error {
	switch edit.Kind {
	case EditAddItem:
		if edit.Item == nil {
			return fmt.Errorf("add_item: item required")
		}
		bill.Items = append(bill.Items, *edit.Item)

	case EditRemoveItem:
		idx := findItem(bill, edit.ItemID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownItem, edit.ItemID)
		}
		bill.Items = append(bill.Items[:idx], bill.Items[idx+1:]...)

	case EditChangeSharedBy:
		idx := findItem(bill, edit.ItemID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownItem, edit.ItemID)
		}
		bill.Items[idx].SharedBy = append([]string(nil), edit.SharedBy...)

	case EditSetTax:
		if edit.Amount == nil {
			return fmt.Errorf("set_tax: amount required")
		}
		bill.Tax = *edit.Amount

	case EditSetTip:
		if edit.Amount == nil {
			return fmt.Errorf("set_tip: amount required")
		}
		bill.Tip = *edit.Amount

	case EditSetDiscount:
		if edit.Amount == nil {
			return fmt.Errorf("set_discount: amount required")
		}
		bill.Discount = *edit.Amount

	case EditChangeSplitMethod:
		if !edit.SplitMethod.Valid() {
			return fmt.Errorf("change_split_method: invalid method %q", edit.SplitMethod)
		}
		bill.SplitMethod = edit.SplitMethod

	case EditAddParticipant:
		// Participants join and leave only while the bill is a draft.
		if bill.Status != models.StatusDraft {
			return fmt.Errorf("%w: participants are fixed after finalization", ErrBillLocked)
		}
		if edit.Participant == nil {
			return fmt.Errorf("add_participant: participant required")
		}
		if bill.HasParticipant(edit.Participant.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, edit.Participant.ID)
		}
		if len(bill.Participants) >= models.MaxParticipants {
			return ErrTooManyParticipants
		}
		bill.Participants = append(bill.Participants, *edit.Participant)

	case EditRemoveParticipant:
		if bill.Status != models.StatusDraft {
			return fmt.Errorf("%w: participants are fixed after finalization", ErrBillLocked)
		}
		idx := -1
		for i := range bill.Participants {
			if bill.Participants[i].ID == edit.ParticipantID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownParticipant, edit.ParticipantID)
		}
		bill.Participants = append(bill.Participants[:idx], bill.Participants[idx+1:]...)
		for i := range bill.Items {
			bill.Items[i].SharedBy = removeID(bill.Items[i].SharedBy, edit.ParticipantID)
		}

	case EditSetDeclaredShare:
		p := bill.Participant(edit.ParticipantID)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrUnknownParticipant, edit.ParticipantID)
		}
		if edit.Amount != nil {
			p.Share = *edit.Amount
		}
		if edit.PercentBP != nil {
			p.PercentBP = *edit.PercentBP
		}

	default:
		return fmt.Errorf("unsupported edit kind %q", edit.Kind)
	}
	return nil
}

func findItem(bill *models.Bill, itemID string) int {
	for i := range bill.Items {
		if bill.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
