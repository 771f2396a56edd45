package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
	"github.com/splitledger/splitledger/internal/storage/sqlite"
)

func newTestGuard(t *testing.T) (*Guard, storage.Store) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "splitledger-engine-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewGuard(store), store
}

func seedBill(t *testing.T, store storage.Store) *models.Bill {
	t.Helper()
	bill := &models.Bill{
		Title:       "Groceries",
		Currency:    "USD",
		SplitMethod: models.SplitEqual,
		Subtotal:    money.New(9000, "USD"),
		Status:      models.StatusDraft,
		Participants: []models.Participant{
			{ID: "p1", Name: "Alice"},
			{ID: "p2", Name: "Bob"},
			{ID: "p3", Name: "Carol"},
		},
	}
	require.NoError(t, store.CreateBill(context.Background(), bill))
	return bill
}

func TestSubmitFinalize(t *testing.T) {
	guard, store := newTestGuard(t)
	ctx := context.Background()
	bill := seedBill(t, store)

	finalized, err := guard.Submit(ctx, bill.ID, 0, Command{Kind: CommandFinalize})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, finalized.Status)
	assert.Equal(t, int64(1), finalized.Version)
	assert.Equal(t, int64(3000), finalized.Participants[0].AmountOwed.Amount)

	// The new version is durable, not just in the returned copy.
	stored, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestSubmitStaleVersion(t *testing.T) {
	guard, store := newTestGuard(t)
	ctx := context.Background()
	bill := seedBill(t, store)

	_, err := guard.Submit(ctx, bill.ID, 0, Command{Kind: CommandFinalize})
	require.NoError(t, err)

	// A writer still holding version 0 must be turned away without effect.
	_, err = guard.Submit(ctx, bill.ID, 0, Command{Kind: CommandCancel})
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	stored, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestSubmitRejectedCommandLeavesVersion(t *testing.T) {
	guard, store := newTestGuard(t)
	ctx := context.Background()
	bill := seedBill(t, store)

	// Payments before finalization fail in the ledger, not in storage,
	// and must not consume a version.
	_, err := guard.Submit(ctx, bill.ID, 0, Command{
		Kind:    CommandPayment,
		Payment: &models.PaymentEvent{ID: "pay-1", ParticipantID: "p1", Amount: money.New(3000, "USD")},
	})
	assert.ErrorIs(t, err, ledger.ErrBillLocked)

	stored, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Version)
}

func TestSubmitUnknownBill(t *testing.T) {
	guard, _ := newTestGuard(t)

	_, err := guard.Submit(context.Background(), "no-such-bill", 0, Command{Kind: CommandCancel})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubmitConcurrentSameVersion(t *testing.T) {
	guard, store := newTestGuard(t)
	ctx := context.Background()
	bill := seedBill(t, store)

	_, err := guard.Submit(ctx, bill.ID, 0, Command{Kind: CommandFinalize})
	require.NoError(t, err)

	// Ten writers race with the same expected version. Exactly one wins.
	const writers = 10
	var wins, conflicts atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := guard.Submit(ctx, bill.ID, 1, Command{
				Kind: CommandPayment,
				Payment: &models.PaymentEvent{
					ID:            fmt.Sprintf("pay-%d", n),
					ParticipantID: "p1",
					Amount:        money.New(100, "USD"),
				},
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, storage.ErrVersionConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
	assert.Equal(t, int64(writers-1), conflicts.Load())

	stored, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Len(t, stored.Payments, 1)
}

func TestSubmitResubmittedPaymentEventNotDoubleCounted(t *testing.T) {
	guard, store := newTestGuard(t)
	ctx := context.Background()
	bill := seedBill(t, store)

	_, err := guard.Submit(ctx, bill.ID, 0, Command{Kind: CommandFinalize})
	require.NoError(t, err)

	event := &models.PaymentEvent{ID: "pay-1", ParticipantID: "p1", Amount: money.New(3000, "USD")}
	paid, err := guard.Submit(ctx, bill.ID, 1, Command{Kind: CommandPayment, Payment: event})
	require.NoError(t, err)
	require.Equal(t, int64(3000), paid.Participant("p1").AmountPaid.Amount)

	// A client that lost the response retries the same event against the
	// new version. The retry succeeds without recounting the money.
	retried, err := guard.Submit(ctx, bill.ID, paid.Version, Command{Kind: CommandPayment, Payment: event})
	require.NoError(t, err)

	stored, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)

	var logged int64
	for _, e := range stored.Payments {
		if e.ParticipantID == "p1" {
			logged += e.Amount.Amount
		}
	}
	assert.Equal(t, logged, stored.Participant("p1").AmountPaid.Amount)
	assert.Equal(t, int64(3000), stored.Participant("p1").AmountPaid.Amount)
	assert.Equal(t, models.StatusPartial, stored.Status)
	assert.Equal(t, retried.Version, stored.Version)
}

func TestSubmitRetryLoopConverges(t *testing.T) {
	guard, store := newTestGuard(t)
	ctx := context.Background()
	bill := seedBill(t, store)

	_, err := guard.Submit(ctx, bill.ID, 0, Command{Kind: CommandFinalize})
	require.NoError(t, err)

	// Each writer reloads on conflict and retries. All payments land.
	const writers = 5
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			event := &models.PaymentEvent{
				ID:            fmt.Sprintf("pay-%d", n),
				ParticipantID: "p2",
				Amount:        money.New(600, "USD"),
			}
			for {
				current, err := store.GetBill(ctx, bill.ID)
				if err != nil {
					t.Errorf("reload failed: %v", err)
					return
				}
				_, err = guard.Submit(ctx, bill.ID, current.Version, Command{Kind: CommandPayment, Payment: event})
				if err == nil {
					return
				}
				if !errors.Is(err, storage.ErrVersionConflict) {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	stored, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Payments, writers)
	assert.Equal(t, int64(1+writers), stored.Version)
	assert.Equal(t, int64(3000), stored.Participant("p2").AmountPaid.Amount)
	assert.Equal(t, models.StatusPartial, stored.Status)
}
