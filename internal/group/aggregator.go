// Package group folds many bills' ledgers into per-member net balances.
//
// A member's group balance is the signed sum of their balance across every
// non-cancelled bill in the group: positive means the group owes the member,
// negative means the member owes the group. The package also simplifies the
// resulting balances into a small set of member-to-member debts for "who owes
// whom" summaries.
package group

import (
	"fmt"
	"sort"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// DebtEdge is one settlement suggestion: From pays To the given amount.
type DebtEdge struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount money.Money `json:"amount"`
}

// BalanceSheet computes every member's signed balance across the given
// bills. Cancelled bills are excluded. All bills must share one currency;
// the engine does not convert.
func BalanceSheet(bills []*models.Bill) (map[string]money.Money, error) {
	sheet := make(map[string]money.Money)
	currency := ""

	for _, bill := range bills {
		if bill.Status == models.StatusCancelled {
			continue
		}
		if currency == "" {
			currency = bill.Currency
		} else if bill.Currency != currency {
			return nil, fmt.Errorf("%w: bill %s is %s, group is %s",
				money.ErrCurrencyMismatch, bill.ID, bill.Currency, currency)
		}
		for i := range bill.Participants {
			p := &bill.Participants[i]
			balance := sheet[p.ID]
			balance.Currency = currency
			balance.Amount += p.Balance().Amount
			sheet[p.ID] = balance
		}
	}
	return sheet, nil
}

// MemberBalance returns one member's signed balance across the given bills.
// Members appearing on no bill have a zero balance.
func MemberBalance(bills []*models.Bill, memberID string) (money.Money, error) {
	sheet, err := BalanceSheet(bills)
	if err != nil {
		return money.Money{}, err
	}
	return sheet[memberID], nil
}

// SimplifyDebts matches members who owe money against members who are owed,
// largest balances first, producing a near-minimal set of transfers. Exact
// minor-unit arithmetic means the matching terminates with every balance at
// zero, with no floating-point noise threshold needed. The output is
// deterministic: ties are broken by member ID.
func SimplifyDebts(sheet map[string]money.Money) []DebtEdge {
	type stake struct {
		id     string
		amount int64 // positive minor units
	}
	var debtors, creditors []stake
	currency := ""

	for id, balance := range sheet {
		currency = balance.Currency
		switch {
		case balance.Amount < 0:
			debtors = append(debtors, stake{id: id, amount: -balance.Amount})
		case balance.Amount > 0:
			creditors = append(creditors, stake{id: id, amount: balance.Amount})
		}
	}

	byAmountThenID := func(s []stake) {
		sort.Slice(s, func(a, b int) bool {
			if s[a].amount != s[b].amount {
				return s[a].amount > s[b].amount
			}
			return s[a].id < s[b].id
		})
	}
	byAmountThenID(debtors)
	byAmountThenID(creditors)

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount < amount {
			amount = creditors[j].amount
		}
		edges = append(edges, DebtEdge{
			From:   debtors[i].id,
			To:     creditors[j].id,
			Amount: money.New(amount, currency),
		})
		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}
	return edges
}

// UnpaidParticipants lists the IDs of participants who have not covered
// their allocation, in bill order. Feeds the reminder service.
func UnpaidParticipants(bill *models.Bill) []string {
	var unpaid []string
	for i := range bill.Participants {
		if !bill.Participants[i].Paid() {
			unpaid = append(unpaid, bill.Participants[i].ID)
		}
	}
	return unpaid
}
