package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

func TestCreateGroupValidation(t *testing.T) {
	_, groups, _ := newTestServices(t)

	_, err := groups.CreateGroup(context.Background(), &models.Group{})
	assert.ErrorIs(t, err, ErrMissingGroupName)
}

func TestGroupNotFound(t *testing.T) {
	_, groups, _ := newTestServices(t)
	ctx := context.Background()

	_, err := groups.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = groups.Balances(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = groups.ListBills(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGroupBalancesAcrossBills(t *testing.T) {
	bills, groups, _ := newTestServices(t)
	ctx := context.Background()

	grp, err := groups.CreateGroup(ctx, &models.Group{Name: "Flat", Members: []string{"alice", "bob"}})
	require.NoError(t, err)

	// Bill 1: 60.00 split evenly, alice covers the whole thing.
	b1 := draftBill()
	b1.GroupID = grp.ID
	created, err := bills.CreateBill(ctx, b1)
	require.NoError(t, err)
	_, err = bills.FinalizeBill(ctx, created.ID, 0)
	require.NoError(t, err)
	_, err = bills.RecordPayment(ctx, created.ID, 1, models.PaymentEvent{
		ID: "pay-1", ParticipantID: "alice", Amount: money.New(6000, "USD"),
	})
	require.NoError(t, err)

	// Bill 2: cancelled before anyone pays, must not affect balances.
	b2 := draftBill()
	b2.GroupID = grp.ID
	cancelled, err := bills.CreateBill(ctx, b2)
	require.NoError(t, err)
	_, err = bills.CancelBill(ctx, cancelled.ID, 0)
	require.NoError(t, err)

	balances, err := groups.Balances(ctx, grp.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(3000), balances.Balances["alice"].Amount)
	assert.Equal(t, int64(-3000), balances.Balances["bob"].Amount)

	require.Len(t, balances.Transfers, 1)
	assert.Equal(t, "bob", balances.Transfers[0].From)
	assert.Equal(t, "alice", balances.Transfers[0].To)
	assert.Equal(t, int64(3000), balances.Transfers[0].Amount.Amount)

	listed, err := groups.ListBills(ctx, grp.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestAddMembersIgnoresExisting(t *testing.T) {
	_, groups, _ := newTestServices(t)
	ctx := context.Background()

	grp, err := groups.CreateGroup(ctx, &models.Group{Name: "Club", Members: []string{"a"}})
	require.NoError(t, err)

	got, err := groups.AddMembers(ctx, grp.ID, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Members)
}
