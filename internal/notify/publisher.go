// Package notify publishes balance updates when a bill changes, so
// downstream consumers (reminder jobs, sync workers) can react without
// polling.
package notify

import (
	"context"

	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/models"
)

// BalanceUpdate is the message emitted after every accepted bill mutation.
// It carries only identifiers and totals; consumers fetch the full bill if
// they need more.
type BalanceUpdate struct {
	BillID      string `json:"bill_id"`
	GroupID     string `json:"group_id,omitempty"`
	Status      string `json:"status"`
	Version     int64  `json:"version"`
	Currency    string `json:"currency"`
	Outstanding int64  `json:"outstanding"`
	Unpaid      int    `json:"unpaid"`
}

// NewBalanceUpdate summarizes a bill's settlement state.
func NewBalanceUpdate(bill *models.Bill) BalanceUpdate {
	unpaid := 0
	for i := range bill.Participants {
		if !bill.Participants[i].Paid() {
			unpaid++
		}
	}
	return BalanceUpdate{
		BillID:      bill.ID,
		GroupID:     bill.GroupID,
		Status:      string(bill.Status),
		Version:     bill.Version,
		Currency:    bill.Currency,
		Outstanding: ledger.NetBalance(bill).Amount,
		Unpaid:      unpaid,
	}
}

// Publisher delivers balance updates. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishBalanceUpdate(ctx context.Context, update BalanceUpdate) error
	Close() error
}

// NopPublisher drops every update. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBalanceUpdate(context.Context, BalanceUpdate) error { return nil }
func (NopPublisher) Close() error                                              { return nil }
