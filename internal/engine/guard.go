// Package engine serializes concurrent mutations to a bill.
//
// Every write goes through Guard.Submit, which holds a per-bill mutex while
// it loads, applies and persists, and checks the caller's expected version
// against both the loaded bill and the database row. The conditional update
// in storage is the real compare-and-swap; the mutex only keeps local
// writers from burning round trips on conflicts they would lose anyway.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

// CommandKind identifies the mutation a Command carries.
type CommandKind string

const (
	CommandEdit     CommandKind = "edit"
	CommandPayment  CommandKind = "payment"
	CommandFinalize CommandKind = "finalize"
	CommandCancel   CommandKind = "cancel"
)

// Command is one mutation to apply to a bill. Exactly one payload field is
// used, selected by Kind.
type Command struct {
	Kind    CommandKind
	Edit    *ledger.Edit
	Payment *models.PaymentEvent
}

// Guard applies commands to bills one at a time per bill, with optimistic
// version checking against the caller's last-seen version.
type Guard struct {
	store storage.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGuard creates a Guard backed by the given store.
func NewGuard(store storage.Store) *Guard {
	return &Guard{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// Submit applies cmd to the bill identified by billID, provided the bill is
// still at expectedVersion. On success the returned bill carries
// expectedVersion+1. A stale expectedVersion fails with
// storage.ErrVersionConflict and no effect; the caller reloads and retries
// with fresh state if it still wants the change.
func (g *Guard) Submit(ctx context.Context, billID string, expectedVersion int64, cmd Command) (*models.Bill, error) {
	lock := g.billLock(billID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bill, err := g.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.Version != expectedVersion {
		return nil, fmt.Errorf("bill %s is at version %d, not %d: %w",
			billID, bill.Version, expectedVersion, storage.ErrVersionConflict)
	}

	next, err := g.apply(bill, cmd)
	if err != nil {
		return nil, err
	}

	next.Version = expectedVersion + 1
	if err := g.store.UpdateBill(ctx, next, expectedVersion); err != nil {
		return nil, err
	}
	return next, nil
}

func (g *Guard) apply(bill *models.Bill, cmd Command) (*models.Bill, error) {
	switch cmd.Kind {
	case CommandEdit:
		if cmd.Edit == nil {
			return nil, fmt.Errorf("edit command requires an edit")
		}
		return ledger.ApplyEdit(bill, *cmd.Edit)
	case CommandPayment:
		if cmd.Payment == nil {
			return nil, fmt.Errorf("payment command requires a payment event")
		}
		return ledger.ApplyPayment(bill, *cmd.Payment)
	case CommandFinalize:
		return ledger.Finalize(bill)
	case CommandCancel:
		return ledger.Cancel(bill)
	default:
		return nil, fmt.Errorf("unsupported command kind %q", cmd.Kind)
	}
}

// billLock returns the mutex for a bill, creating it on first use. Locks are
// never removed; the map grows with the number of distinct bills touched by
// this process, which is bounded by the working set.
func (g *Guard) billLock(billID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[billID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[billID] = lock
	}
	return lock
}
