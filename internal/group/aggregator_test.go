package group

import (
	"errors"
	"testing"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

func bill(status models.Status, currency string, participants ...models.Participant) *models.Bill {
	return &models.Bill{
		Currency:     currency,
		Status:       status,
		Participants: participants,
	}
}

func stake(id string, owed, paid int64) models.Participant {
	return models.Participant{
		ID:         id,
		AmountOwed: money.New(owed, "USD"),
		AmountPaid: money.New(paid, "USD"),
	}
}

func TestMemberBalance(t *testing.T) {
	// Bill 1: X paid 2000 more than owed. Bill 2: X owes 500.
	bills := []*models.Bill{
		bill(models.StatusPartial, "USD",
			stake("x", 1000, 3000),
			stake("y", 2000, 0),
		),
		bill(models.StatusPending, "USD",
			stake("x", 500, 0),
			stake("y", 500, 1000),
		),
	}

	balance, err := MemberBalance(bills, "x")
	if err != nil {
		t.Fatalf("MemberBalance() error = %v", err)
	}
	if balance.Amount != 1500 {
		t.Errorf("x balance = %d, want 1500 (owed to x)", balance.Amount)
	}

	balance, err = MemberBalance(bills, "y")
	if err != nil {
		t.Fatalf("MemberBalance() error = %v", err)
	}
	if balance.Amount != -1500 {
		t.Errorf("y balance = %d, want -1500 (y owes)", balance.Amount)
	}

	// Unknown member has a zero balance.
	balance, err = MemberBalance(bills, "stranger")
	if err != nil {
		t.Fatalf("MemberBalance() error = %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("stranger balance = %d, want 0", balance.Amount)
	}
}

func TestBalanceSheetSkipsCancelled(t *testing.T) {
	bills := []*models.Bill{
		bill(models.StatusPending, "USD", stake("x", 1000, 0)),
		bill(models.StatusCancelled, "USD", stake("x", 99999, 0)),
	}

	sheet, err := BalanceSheet(bills)
	if err != nil {
		t.Fatalf("BalanceSheet() error = %v", err)
	}
	if got := sheet["x"].Amount; got != -1000 {
		t.Errorf("x balance = %d, want -1000 (cancelled bill ignored)", got)
	}
}

func TestBalanceSheetRejectsMixedCurrencies(t *testing.T) {
	bills := []*models.Bill{
		bill(models.StatusPending, "USD", stake("x", 1000, 0)),
		bill(models.StatusPending, "EUR", stake("x", 1000, 0)),
	}
	if _, err := BalanceSheet(bills); !errors.Is(err, money.ErrCurrencyMismatch) {
		t.Fatalf("BalanceSheet() error = %v, want %v", err, money.ErrCurrencyMismatch)
	}
}

func TestSimplifyDebts(t *testing.T) {
	sheet := map[string]money.Money{
		"a": money.New(-3000, "USD"),
		"b": money.New(-1000, "USD"),
		"c": money.New(2500, "USD"),
		"d": money.New(1500, "USD"),
		"e": money.New(0, "USD"),
	}

	edges := SimplifyDebts(sheet)

	want := []DebtEdge{
		{From: "a", To: "c", Amount: money.New(2500, "USD")},
		{From: "a", To: "d", Amount: money.New(500, "USD")},
		{From: "b", To: "d", Amount: money.New(1000, "USD")},
	}
	if len(edges) != len(want) {
		t.Fatalf("got %d edges (%v), want %d", len(edges), edges, len(want))
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, edges[i], want[i])
		}
	}

	// Every balance settles exactly.
	net := make(map[string]int64)
	for id, balance := range sheet {
		net[id] = balance.Amount
	}
	for _, e := range edges {
		net[e.From] += e.Amount.Amount
		net[e.To] -= e.Amount.Amount
	}
	for id, rest := range net {
		if rest != 0 {
			t.Errorf("member %s left with %d after settlement", id, rest)
		}
	}
}

func TestSimplifyDebtsDeterministic(t *testing.T) {
	sheet := map[string]money.Money{
		"a": money.New(-500, "USD"),
		"b": money.New(-500, "USD"),
		"c": money.New(500, "USD"),
		"d": money.New(500, "USD"),
	}
	first := SimplifyDebts(sheet)
	for i := 0; i < 20; i++ {
		again := SimplifyDebts(sheet)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d edges, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: edge %d = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}

func TestUnpaidParticipants(t *testing.T) {
	b := bill(models.StatusPartial, "USD",
		stake("x", 1000, 1000),
		stake("y", 1000, 500),
		stake("z", 1000, 0),
	)
	got := UnpaidParticipants(b)
	if len(got) != 2 || got[0] != "y" || got[1] != "z" {
		t.Errorf("UnpaidParticipants() = %v, want [y z]", got)
	}
}
