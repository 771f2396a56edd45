package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/splitledger/splitledger/internal/engine"
	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/metrics"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/notify"
	"github.com/splitledger/splitledger/internal/storage"
)

var (
	ErrMissingTitle       = errors.New("bill title is required")
	ErrMissingCurrency    = errors.New("bill currency is required")
	ErrInvalidSplitMethod = errors.New("invalid split method")
	ErrDuplicateID        = errors.New("duplicate participant id")
)

// BillService owns the bill write path: creation, edits, payments and
// lifecycle transitions. Every mutation after creation goes through the
// engine so concurrent writers are serialized per bill.
type BillService struct {
	store     storage.Store
	guard     *engine.Guard
	publisher notify.Publisher
}

// NewBillService creates a BillService.
func NewBillService(store storage.Store, guard *engine.Guard, publisher notify.Publisher) *BillService {
	return &BillService{store: store, guard: guard, publisher: publisher}
}

// CreateBill validates and persists a new draft bill. The bill starts at
// version 0 with no allocations; those are computed on finalize or on the
// first edit.
func (s *BillService) CreateBill(ctx context.Context, bill *models.Bill) (*models.Bill, error) {
	if bill.Title == "" {
		return nil, ErrMissingTitle
	}
	if bill.Currency == "" {
		return nil, ErrMissingCurrency
	}
	if !bill.SplitMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSplitMethod, bill.SplitMethod)
	}
	if len(bill.Participants) > models.MaxParticipants {
		return nil, ledger.ErrTooManyParticipants
	}
	seen := make(map[string]bool, len(bill.Participants))
	for _, p := range bill.Participants {
		if p.ID == "" {
			return nil, errors.New("participant id is required")
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = true
	}

	bill.Status = models.StatusDraft
	bill.Version = 0
	if err := s.store.CreateBill(ctx, bill); err != nil {
		return nil, err
	}

	metrics.BillsCreated.WithLabelValues(string(bill.SplitMethod)).Inc()
	slog.Info("bill created",
		"bill_id", bill.ID,
		"group_id", bill.GroupID,
		"split_method", bill.SplitMethod,
		"participants", len(bill.Participants),
	)
	return bill, nil
}

// GetBill returns the bill by ID.
func (s *BillService) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	return s.store.GetBill(ctx, billID)
}

// EditBill applies one edit against the caller's last-seen version.
func (s *BillService) EditBill(ctx context.Context, billID string, expectedVersion int64, edit ledger.Edit) (*models.Bill, error) {
	bill, err := s.submit(ctx, billID, expectedVersion, engine.Command{
		Kind: engine.CommandEdit,
		Edit: &edit,
	})
	if err != nil {
		return nil, err
	}
	metrics.EditsApplied.WithLabelValues(string(edit.Kind)).Inc()
	return bill, nil
}

// RecordPayment appends a payment event. The event ID must be supplied by
// the caller; retrying with the same ID is safe because the ledger treats a
// resubmitted event as a no-op.
func (s *BillService) RecordPayment(ctx context.Context, billID string, expectedVersion int64, event models.PaymentEvent) (*models.Bill, error) {
	if event.ID == "" {
		return nil, errors.New("payment event id is required")
	}

	bill, err := s.submit(ctx, billID, expectedVersion, engine.Command{
		Kind:    engine.CommandPayment,
		Payment: &event,
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.Inc()
	if bill.Status == models.StatusCompleted {
		metrics.BillsCompleted.Inc()
		slog.Info("bill settled", "bill_id", bill.ID)
	}
	return bill, nil
}

// FinalizeBill locks the participant set and opens the bill for payments.
// Participants not yet in the bill's group are added to it.
func (s *BillService) FinalizeBill(ctx context.Context, billID string, expectedVersion int64) (*models.Bill, error) {
	bill, err := s.submit(ctx, billID, expectedVersion, engine.Command{Kind: engine.CommandFinalize})
	if err != nil {
		return nil, err
	}

	s.syncGroupMembers(ctx, bill)

	if bill.Status == models.StatusCompleted {
		metrics.BillsCompleted.Inc()
	}
	return bill, nil
}

// CancelBill voids a bill that has not completed.
func (s *BillService) CancelBill(ctx context.Context, billID string, expectedVersion int64) (*models.Bill, error) {
	return s.submit(ctx, billID, expectedVersion, engine.Command{Kind: engine.CommandCancel})
}

// submit routes the command through the guard, counts conflicts, and
// publishes the resulting balance update.
func (s *BillService) submit(ctx context.Context, billID string, expectedVersion int64, cmd engine.Command) (*models.Bill, error) {
	bill, err := s.guard.Submit(ctx, billID, expectedVersion, cmd)
	if err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
		}
		return nil, err
	}

	if err := s.publisher.PublishBalanceUpdate(ctx, notify.NewBalanceUpdate(bill)); err != nil {
		// The write already committed; a lost notification is not a
		// reason to fail the request.
		slog.Warn("failed to publish balance update", "bill_id", bill.ID, "error", err)
	}
	return bill, nil
}

// syncGroupMembers adds the bill's participants to its group so group
// balances include everyone on the bill. Failures are logged, not returned;
// the finalize itself already committed.
func (s *BillService) syncGroupMembers(ctx context.Context, bill *models.Bill) {
	if bill.GroupID == "" {
		return
	}
	grp, err := s.store.GetGroup(ctx, bill.GroupID)
	if err != nil {
		slog.Warn("failed to load group for member sync", "group_id", bill.GroupID, "error", err)
		return
	}

	var missing []string
	for _, p := range bill.Participants {
		if !grp.HasMember(p.ID) {
			missing = append(missing, p.ID)
		}
	}
	if len(missing) == 0 {
		return
	}
	if err := s.store.AddGroupMembers(ctx, bill.GroupID, missing); err != nil {
		slog.Error("failed to add bill participants to group", "group_id", bill.GroupID, "error", err)
		return
	}
	slog.Info("added bill participants to group", "group_id", bill.GroupID, "members", missing)
}
