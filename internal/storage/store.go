// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/splitledger/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when a conditional bill update observes
	// a version other than the one the caller expected. The caller must
	// re-read and retry.
	ErrVersionConflict = errors.New("version conflict")
)

// Store defines the interface for persistence. The abstraction allows
// swapping storage backends (SQLite, PostgreSQL, ...) without changing the
// engine or service layers.
type Store interface {
	// CreateBill persists a new bill graph. Missing IDs and timestamps are
	// populated on the model.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill with all items, participants and payment
	// events, read as one consistent snapshot.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// UpdateBill replaces the stored bill only if its current version equals
	// expectedVersion, failing with ErrVersionConflict otherwise. The write
	// is the compare-and-swap that makes concurrent editing safe.
	UpdateBill(ctx context.Context, bill *models.Bill, expectedVersion int64) error

	// ListBillsByGroup retrieves all bills attached to a group, newest first.
	ListBillsByGroup(ctx context.Context, groupID string) ([]*models.Bill, error)

	// CreateGroup persists a new group.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// AddGroupMembers appends members to a group, ignoring ones already
	// present.
	AddGroupMembers(ctx context.Context, groupID string, members []string) error

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email, (nil, nil) when absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID, (nil, nil) when absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
