package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "splitledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testBill() *models.Bill {
	usd := func(amount int64) money.Money { return money.New(amount, "USD") }
	return &models.Bill{
		Title:       "Team dinner",
		Category:    "food",
		Currency:    "USD",
		SplitMethod: models.SplitItemized,
		Tax:         usd(300),
		Tip:         usd(500),
		Status:      models.StatusDraft,
		Items: []models.Item{
			{Name: "Pizza", UnitPrice: usd(2000), Quantity: 1, SharedBy: []string{"p1", "p2"}},
			{Name: "Beer", UnitPrice: usd(500), Quantity: 2, SharedBy: []string{"p2"}, TaxExempt: true},
		},
		Participants: []models.Participant{
			{ID: "p1", Name: "Alice", AmountOwed: usd(1000)},
			{ID: "p2", Name: "Bob", AmountOwed: usd(2800)},
		},
	}
}

func TestSQLiteStoreBills(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateBill generates IDs and timestamps", func(t *testing.T) {
		bill := testBill()
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if bill.ID == "" {
			t.Error("Expected bill ID to be generated")
		}
		if bill.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		if bill.Items[0].ID == "" {
			t.Error("Expected item ID to be generated")
		}
	})

	t.Run("GetBill round-trips the full graph in order", func(t *testing.T) {
		original := testBill()
		if err := store.CreateBill(ctx, original); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		got, err := store.GetBill(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}

		if got.Title != original.Title || got.Category != original.Category {
			t.Errorf("bill header mismatch: got %q/%q", got.Title, got.Category)
		}
		if got.SplitMethod != models.SplitItemized || got.Status != models.StatusDraft {
			t.Errorf("method/status mismatch: %s/%s", got.SplitMethod, got.Status)
		}
		if got.Tax.Amount != 300 || got.Tip.Amount != 500 {
			t.Errorf("tax/tip mismatch: %d/%d", got.Tax.Amount, got.Tip.Amount)
		}
		if got.Tax.Currency != "USD" {
			t.Errorf("tax currency = %q, want USD", got.Tax.Currency)
		}

		// Insertion order must survive the round trip exactly.
		if len(got.Participants) != 2 || got.Participants[0].ID != "p1" || got.Participants[1].ID != "p2" {
			t.Errorf("participant order mismatch: %+v", got.Participants)
		}
		if got.Participants[1].AmountOwed.Amount != 2800 {
			t.Errorf("p2 owed = %d, want 2800", got.Participants[1].AmountOwed.Amount)
		}
		if len(got.Items) != 2 || got.Items[0].Name != "Pizza" || got.Items[1].Name != "Beer" {
			t.Errorf("item order mismatch: %+v", got.Items)
		}
		if !got.Items[1].TaxExempt {
			t.Error("expected beer to stay tax exempt")
		}
		if len(got.Items[0].SharedBy) != 2 || got.Items[0].SharedBy[0] != "p1" {
			t.Errorf("share order mismatch: %v", got.Items[0].SharedBy)
		}
		if got.Items[1].Quantity != 2 {
			t.Errorf("quantity = %d, want 2", got.Items[1].Quantity)
		}
	})

	t.Run("GetBill returns ErrNotFound for missing bill", func(t *testing.T) {
		_, err := store.GetBill(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetBill error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStoreVersionCAS(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bill := testBill()
	if err := store.CreateBill(ctx, bill); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	// First writer wins.
	updated := bill.Clone()
	updated.Title = "Renamed"
	updated.Version = 1
	if err := store.UpdateBill(ctx, updated, 0); err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}

	// Second writer against the stale version loses.
	stale := bill.Clone()
	stale.Title = "Should not apply"
	stale.Version = 1
	err := store.UpdateBill(ctx, stale, 0)
	if !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("UpdateBill error = %v, want ErrVersionConflict", err)
	}

	got, err := store.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if got.Title != "Renamed" || got.Version != 1 {
		t.Errorf("bill = %q v%d, want Renamed v1", got.Title, got.Version)
	}

	// Updating a missing bill reports not-found, not a conflict.
	ghost := testBill()
	ghost.ID = "ghost"
	if err := store.UpdateBill(ctx, ghost, 0); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateBill error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorePaymentEventsAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bill := testBill()
	if err := store.CreateBill(ctx, bill); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	next := bill.Clone()
	next.Version = 1
	next.Payments = append(next.Payments, models.PaymentEvent{
		ID: "pay-1", ParticipantID: "p1", Amount: money.New(1000, "USD"), Method: "cash",
	})
	if err := store.UpdateBill(ctx, next, 0); err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}

	// A later update carrying the same events must not duplicate them.
	again := next.Clone()
	again.Version = 2
	again.Payments = append(again.Payments, models.PaymentEvent{
		ID: "pay-2", ParticipantID: "p2", Amount: money.New(-500, "USD"), Reference: "refund",
	})
	if err := store.UpdateBill(ctx, again, 1); err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}

	got, err := store.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if len(got.Payments) != 2 {
		t.Fatalf("got %d payment events, want 2", len(got.Payments))
	}
	if got.Payments[0].ID != "pay-1" || got.Payments[1].ID != "pay-2" {
		t.Errorf("payment order mismatch: %+v", got.Payments)
	}
	if got.Payments[1].Amount.Amount != -500 {
		t.Errorf("correction amount = %d, want -500", got.Payments[1].Amount.Amount)
	}
}

func TestSQLiteStoreGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	grp := &models.Group{Name: "Roommates", Members: []string{"m1", "m2"}}
	if err := store.CreateGroup(ctx, grp); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if grp.ID == "" {
		t.Fatal("Expected group ID to be generated")
	}

	if err := store.AddGroupMembers(ctx, grp.ID, []string{"m2", "m3"}); err != nil {
		t.Fatalf("AddGroupMembers failed: %v", err)
	}

	got, err := store.GetGroup(ctx, grp.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	want := []string{"m1", "m2", "m3"}
	if len(got.Members) != len(want) {
		t.Fatalf("members = %v, want %v", got.Members, want)
	}
	for i := range want {
		if got.Members[i] != want[i] {
			t.Errorf("member %d = %s, want %s", i, got.Members[i], want[i])
		}
	}

	bill := testBill()
	bill.GroupID = grp.ID
	if err := store.CreateBill(ctx, bill); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	bills, err := store.ListBillsByGroup(ctx, grp.ID)
	if err != nil {
		t.Fatalf("ListBillsByGroup failed: %v", err)
	}
	if len(bills) != 1 || bills[0].ID != bill.ID {
		t.Errorf("ListBillsByGroup = %v, want the one bill", bills)
	}
}

func TestSQLiteStoreUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail == nil || byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail = %+v, want user %s", byEmail, user.ID)
	}

	byID, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID == nil || byID.Email != "alice@example.com" {
		t.Errorf("GetUserByID = %+v", byID)
	}

	missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("GetUserByEmail(missing) = %+v, %v; want nil, nil", missing, err)
	}
}
