// Package allocator computes per-participant allocations for a bill.
//
// Allocate is a pure function: it reads the bill, performs all arithmetic in
// minor units, and returns one allocation per participant. Whatever the split
// method, the allocations sum to the bill's final amount exactly: remainder
// cents are distributed deterministically rather than lost to rounding.
package allocator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

var (
	// ErrNoParticipants is returned for a bill with no participants.
	ErrNoParticipants = errors.New("bill has no participants")

	// ErrInvalidPercentageSum is returned when declared percentages do not
	// sum to exactly 100%.
	ErrInvalidPercentageSum = errors.New("percentages must sum to exactly 100")

	// ErrCustomAmountMismatch is returned when declared custom amounts do
	// not sum to the bill's final amount.
	ErrCustomAmountMismatch = errors.New("custom amounts must sum to the final amount")

	// ErrEmptyShareSet is returned when an item is shared by nobody.
	ErrEmptyShareSet = errors.New("item has no participants sharing it")

	// ErrUnknownParticipant is returned when an item references a
	// participant that is not on the bill.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrInvalidQuantity is returned for items with a non-positive quantity.
	ErrInvalidQuantity = errors.New("item quantity must be positive")
)

// percentTotalBP is 100% expressed in basis points.
const percentTotalBP = 10000

// Allocation is the computed amount one participant owes for one bill.
type Allocation struct {
	ParticipantID string
	Amount        money.Money
}

// Allocate maps the bill to one allocation per participant, in participant
// insertion order. The allocations always sum to bill.FinalAmount() exactly.
func Allocate(bill *models.Bill) ([]Allocation, error) {
	if len(bill.Participants) == 0 {
		return nil, ErrNoParticipants
	}
	if err := validateAmounts(bill); err != nil {
		return nil, err
	}

	var (
		shares []int64
		err    error
	)
	switch bill.SplitMethod {
	case models.SplitEqual:
		shares = allocateEqual(bill)
	case models.SplitPercentage:
		shares, err = allocatePercentage(bill)
	case models.SplitItemized:
		shares, err = allocateItemized(bill)
	case models.SplitCustom:
		shares, err = allocateCustom(bill)
	default:
		err = fmt.Errorf("unsupported split method %q", bill.SplitMethod)
	}
	if err != nil {
		return nil, err
	}

	allocations := make([]Allocation, len(bill.Participants))
	for i, p := range bill.Participants {
		allocations[i] = Allocation{
			ParticipantID: p.ID,
			Amount:        money.New(shares[i], bill.Currency),
		}
	}
	return allocations, nil
}

// validateAmounts rejects negative inputs and mixed currencies before any
// division happens.
func validateAmounts(bill *models.Bill) error {
	for _, m := range []money.Money{bill.Subtotal, bill.Tax, bill.Tip, bill.Discount} {
		if m.Currency != "" && m.Currency != bill.Currency {
			return fmt.Errorf("%w: %s vs %s", money.ErrCurrencyMismatch, m.Currency, bill.Currency)
		}
		if m.IsNegative() {
			return money.ErrNegativeAmount
		}
	}
	for _, item := range bill.Items {
		if item.UnitPrice.Currency != bill.Currency {
			return fmt.Errorf("%w: item %q is %s, bill is %s",
				money.ErrCurrencyMismatch, item.Name, item.UnitPrice.Currency, bill.Currency)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %q", money.ErrNegativeAmount, item.Name)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %q", ErrInvalidQuantity, item.Name)
		}
	}
	if bill.FinalAmount().IsNegative() {
		return fmt.Errorf("%w: discount exceeds bill total", money.ErrNegativeAmount)
	}
	return nil
}

// allocateEqual gives everyone the truncated even share; the remainder
// (always < n cents) goes one cent at a time to the first participants in
// insertion order, so the result is reproducible for the same input.
func allocateEqual(bill *models.Bill) []int64 {
	weights := make([]int64, len(bill.Participants))
	for i := range weights {
		weights[i] = 1
	}
	return distribute(bill.FinalAmount().Amount, weights)
}

// allocatePercentage rounds each share half-up, then parks the leftover cent
// or two on the participant with the largest declared percentage (ties broken
// by insertion order). Percentages must sum to exactly 100%.
func allocatePercentage(bill *models.Bill) ([]int64, error) {
	var sumBP int64
	largest := 0
	for i, p := range bill.Participants {
		if p.PercentBP < 0 || p.PercentBP > percentTotalBP {
			return nil, fmt.Errorf("%w: participant %s declares %d basis points",
				ErrInvalidPercentageSum, p.ID, p.PercentBP)
		}
		sumBP += p.PercentBP
		if p.PercentBP > bill.Participants[largest].PercentBP {
			largest = i
		}
	}
	if sumBP != percentTotalBP {
		return nil, fmt.Errorf("%w: got %d basis points", ErrInvalidPercentageSum, sumBP)
	}

	total := bill.FinalAmount().Amount
	shares := make([]int64, len(bill.Participants))
	var allocated int64
	for i, p := range bill.Participants {
		// Round half-up: add half the divisor before truncating.
		shares[i] = (total*p.PercentBP + percentTotalBP/2) / percentTotalBP
		allocated += shares[i]
	}
	shares[largest] += total - allocated
	return shares, nil
}

// allocateItemized splits every item across its sharers with largest-remainder
// rounding, then allocates tax, tip and discount in proportion to each
// participant's item total. The proportional base is the sum of the current
// items, not the bill's declared subtotal, so edited items can never drift
// out of sync with the adjustments.
func allocateItemized(bill *models.Bill) ([]int64, error) {
	// With no items there is nothing to itemize; fall back to an even split
	// of the whole amount so the sum invariant still holds.
	if len(bill.Items) == 0 {
		return allocateEqual(bill), nil
	}

	index := make(map[string]int, len(bill.Participants))
	for i, p := range bill.Participants {
		index[p.ID] = i
	}

	n := len(bill.Participants)
	itemTotals := make([]int64, n) // per-participant pre-tax share
	taxBase := make([]int64, n)    // item totals excluding tax-exempt items

	for _, item := range bill.Items {
		if len(item.SharedBy) == 0 {
			return nil, fmt.Errorf("%w: item %q", ErrEmptyShareSet, item.Name)
		}
		weights := make([]int64, len(item.SharedBy))
		for i := range weights {
			weights[i] = 1
		}
		pieces := distribute(item.Amount().Amount, weights)
		for i, id := range item.SharedBy {
			idx, ok := index[id]
			if !ok {
				return nil, fmt.Errorf("%w: item %q shared by %s", ErrUnknownParticipant, item.Name, id)
			}
			itemTotals[idx] += pieces[i]
			if !item.TaxExempt {
				taxBase[idx] += pieces[i]
			}
		}
	}

	taxShares := distribute(bill.Tax.Amount, fallbackEqual(taxBase, n))
	tipShares := distribute(bill.Tip.Amount, fallbackEqual(itemTotals, n))
	discountShares := distribute(bill.Discount.Amount, fallbackEqual(itemTotals, n))

	shares := make([]int64, n)
	for i := range shares {
		shares[i] = itemTotals[i] + taxShares[i] + tipShares[i] - discountShares[i]
	}
	return shares, nil
}

// allocateCustom uses declared amounts verbatim, rejecting any set that does
// not reconcile with the final amount. Mismatches are never clamped; in a
// financial context silently correcting the user masks their error.
func allocateCustom(bill *models.Bill) ([]int64, error) {
	total := bill.FinalAmount().Amount
	shares := make([]int64, len(bill.Participants))
	var declared int64
	for i, p := range bill.Participants {
		if p.Share.Currency != "" && p.Share.Currency != bill.Currency {
			return nil, fmt.Errorf("%w: participant %s", money.ErrCurrencyMismatch, p.ID)
		}
		shares[i] = p.Share.Amount
		declared += p.Share.Amount
	}
	if declared != total {
		return nil, fmt.Errorf("%w: declared %d, final amount %d minor units",
			ErrCustomAmountMismatch, declared, total)
	}
	return shares, nil
}

// distribute splits total across weights using the largest-remainder method:
// every slot gets its truncated proportional share, then the leftover cents
// go to the slots with the largest fractional remainders, ties broken by
// index. The returned shares always sum to total. With uniform weights this
// degenerates to floor-plus-first-N, which is exactly the equal-split rule.
func distribute(total int64, weights []int64) []int64 {
	n := len(weights)
	shares := make([]int64, n)
	if total == 0 || n == 0 {
		return shares
	}

	var weightSum int64
	for _, w := range weights {
		weightSum += w
	}
	if weightSum == 0 {
		return shares
	}

	type slot struct {
		index     int
		remainder int64
	}
	remainders := make([]slot, 0, n)

	var allocated int64
	for i, w := range weights {
		num := total * w
		shares[i] = num / weightSum
		allocated += shares[i]
		remainders = append(remainders, slot{index: i, remainder: num % weightSum})
	}

	sort.SliceStable(remainders, func(a, b int) bool {
		return remainders[a].remainder > remainders[b].remainder
	})

	for i := int64(0); i < total-allocated; i++ {
		shares[remainders[i].index]++
	}
	return shares
}

// fallbackEqual returns the given weights, or uniform weights when they are
// all zero (e.g. tax on a bill whose items are all tax-exempt).
func fallbackEqual(weights []int64, n int) []int64 {
	for _, w := range weights {
		if w != 0 {
			return weights
		}
	}
	uniform := make([]int64, n)
	for i := range uniform {
		uniform[i] = 1
	}
	return uniform
}
