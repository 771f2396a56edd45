package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/splitledger/splitledger/internal/group"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

var ErrMissingGroupName = errors.New("group name is required")

// GroupBalances is everything a client needs to settle a group: per-member
// net balances plus the simplified transfer plan.
type GroupBalances struct {
	Balances  map[string]money.Money `json:"balances"`
	Transfers []group.DebtEdge       `json:"transfers"`
}

// GroupService manages groups and the balance views derived from their bills.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a GroupService.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup persists a new group.
func (s *GroupService) CreateGroup(ctx context.Context, grp *models.Group) (*models.Group, error) {
	if grp.Name == "" {
		return nil, ErrMissingGroupName
	}
	if err := s.store.CreateGroup(ctx, grp); err != nil {
		return nil, err
	}
	slog.Info("group created", "group_id", grp.ID, "members", len(grp.Members))
	return grp, nil
}

// GetGroup returns the group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// AddMembers appends new members to the group, ignoring ones already in it.
func (s *GroupService) AddMembers(ctx context.Context, groupID string, members []string) (*models.Group, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if err := s.store.AddGroupMembers(ctx, groupID, members); err != nil {
		return nil, err
	}
	return s.store.GetGroup(ctx, groupID)
}

// ListBills returns all of the group's bills, newest first.
func (s *GroupService) ListBills(ctx context.Context, groupID string) ([]*models.Bill, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListBillsByGroup(ctx, groupID)
}

// Balances folds every non-cancelled bill in the group into per-member net
// balances and a simplified set of settling transfers.
func (s *GroupService) Balances(ctx context.Context, groupID string) (*GroupBalances, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	bills, err := s.store.ListBillsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	sheet, err := group.BalanceSheet(bills)
	if err != nil {
		return nil, err
	}
	return &GroupBalances{
		Balances:  sheet,
		Transfers: group.SimplifyDebts(sheet),
	}, nil
}
