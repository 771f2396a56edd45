// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection avoids SQLITE_BUSY under concurrent writers; the
	// engine serializes per bill anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBill persists a new bill graph to the database.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if bill.CreatedAt == 0 {
		bill.CreatedAt = now
	}
	if bill.UpdatedAt == 0 {
		bill.UpdatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bills (id, group_id, title, category, currency, split_method,
		                    subtotal, tax, tip, discount, status, version,
		                    created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, nullable(bill.GroupID), bill.Title, bill.Category, bill.Currency,
		string(bill.SplitMethod), bill.Subtotal.Amount, bill.Tax.Amount, bill.Tip.Amount,
		bill.Discount.Amount, string(bill.Status), bill.Version,
		bill.CreatedBy, bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	if err := insertChildren(ctx, tx, bill); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateBill replaces the stored bill, but only if the row still carries
// expectedVersion. The conditional UPDATE is the compare-and-swap: a
// concurrent writer that got there first leaves us with zero affected rows
// and the caller gets ErrVersionConflict.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE bills SET group_id = ?, title = ?, category = ?, split_method = ?,
		                  subtotal = ?, tax = ?, tip = ?, discount = ?, status = ?,
		                  version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		nullable(bill.GroupID), bill.Title, bill.Category, string(bill.SplitMethod),
		bill.Subtotal.Amount, bill.Tax.Amount, bill.Tip.Amount, bill.Discount.Amount,
		string(bill.Status), bill.Version, bill.UpdatedAt,
		bill.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM bills WHERE id = ?", bill.ID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("bill %s: %w", bill.ID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check bill existence: %w", err)
		}
		return fmt.Errorf("bill %s at version %d: %w", bill.ID, expectedVersion, storage.ErrVersionConflict)
	}

	// Definition rows are replaced wholesale. Payment events are append-only
	// and never deleted; insertChildren only adds ones not yet stored.
	for _, stmt := range []string{
		"DELETE FROM item_shares WHERE item_id IN (SELECT id FROM items WHERE bill_id = ?)",
		"DELETE FROM items WHERE bill_id = ?",
		"DELETE FROM bill_participants WHERE bill_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, bill.ID); err != nil {
			return fmt.Errorf("failed to clear bill children: %w", err)
		}
	}

	if err := insertChildren(ctx, tx, bill); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBill retrieves a bill by ID, including items, participants and payment
// events. Everything is read inside one transaction so concurrent writers
// can never expose a torn bill.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	bill, err := getBillTx(ctx, tx, billID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return bill, nil
}

// ListBillsByGroup retrieves all bills attached to a group, newest first.
func (s *SQLiteStore) ListBillsByGroup(ctx context.Context, groupID string) ([]*models.Bill, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM bills WHERE group_id = ? ORDER BY created_at DESC, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills by group: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan bill id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	bills := make([]*models.Bill, 0, len(ids))
	for _, id := range ids {
		bill, err := getBillTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return bills, nil
}

func getBillTx(ctx context.Context, tx *sql.Tx, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	var groupID sql.NullString
	var splitMethod, status string
	var subtotal, tax, tip, discount int64

	err := tx.QueryRowContext(ctx,
		`SELECT id, group_id, title, category, currency, split_method,
		        subtotal, tax, tip, discount, status, version,
		        created_by, created_at, updated_at
		 FROM bills WHERE id = ?`,
		billID,
	).Scan(&bill.ID, &groupID, &bill.Title, &bill.Category, &bill.Currency,
		&splitMethod, &subtotal, &tax, &tip, &discount, &status, &bill.Version,
		&bill.CreatedBy, &bill.CreatedAt, &bill.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	if groupID.Valid {
		bill.GroupID = groupID.String
	}
	bill.SplitMethod = models.SplitMethod(splitMethod)
	bill.Status = models.Status(status)
	bill.Subtotal = money.New(subtotal, bill.Currency)
	bill.Tax = money.New(tax, bill.Currency)
	bill.Tip = money.New(tip, bill.Currency)
	bill.Discount = money.New(discount, bill.Currency)

	// Participants in insertion order; the order decides who absorbs
	// remainder cents.
	rows, err := tx.QueryContext(ctx,
		`SELECT participant_id, name, percent_bp, share, amount_owed, amount_paid
		 FROM bill_participants WHERE bill_id = ? ORDER BY position`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	for rows.Next() {
		var p models.Participant
		var share, owed, paid int64
		if err := rows.Scan(&p.ID, &p.Name, &p.PercentBP, &share, &owed, &paid); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.Share = money.New(share, bill.Currency)
		p.AmountOwed = money.New(owed, bill.Currency)
		p.AmountPaid = money.New(paid, bill.Currency)
		bill.Participants = append(bill.Participants, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	itemRows, err := tx.QueryContext(ctx,
		`SELECT id, name, unit_price, quantity, tax_exempt
		 FROM items WHERE bill_id = ? ORDER BY position`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	for itemRows.Next() {
		var item models.Item
		var unitPrice int64
		var taxExempt int
		if err := itemRows.Scan(&item.ID, &item.Name, &unitPrice, &item.Quantity, &taxExempt); err != nil {
			itemRows.Close()
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.UnitPrice = money.New(unitPrice, bill.Currency)
		item.TaxExempt = taxExempt != 0
		bill.Items = append(bill.Items, item)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	for i := range bill.Items {
		shareRows, err := tx.QueryContext(ctx,
			"SELECT participant_id FROM item_shares WHERE item_id = ? ORDER BY position",
			bill.Items[i].ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to get item shares: %w", err)
		}
		for shareRows.Next() {
			var participantID string
			if err := shareRows.Scan(&participantID); err != nil {
				shareRows.Close()
				return nil, fmt.Errorf("failed to scan item share: %w", err)
			}
			bill.Items[i].SharedBy = append(bill.Items[i].SharedBy, participantID)
		}
		shareRows.Close()
		if err := shareRows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate item shares: %w", err)
		}
	}

	eventRows, err := tx.QueryContext(ctx,
		`SELECT id, participant_id, amount, method, reference, created_at
		 FROM payment_events WHERE bill_id = ? ORDER BY position`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment events: %w", err)
	}
	for eventRows.Next() {
		var event models.PaymentEvent
		var amount int64
		if err := eventRows.Scan(&event.ID, &event.ParticipantID, &amount,
			&event.Method, &event.Reference, &event.CreatedAt); err != nil {
			eventRows.Close()
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		event.Amount = money.New(amount, bill.Currency)
		bill.Payments = append(bill.Payments, event)
	}
	eventRows.Close()
	if err := eventRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment events: %w", err)
	}

	return bill, nil
}

// insertChildren writes the bill's participants, items, item shares and any
// new payment events. Positions record insertion order.
func insertChildren(ctx context.Context, tx *sql.Tx, bill *models.Bill) error {
	for pos, p := range bill.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bill_participants (bill_id, participant_id, name, percent_bp,
			                                share, amount_owed, amount_paid, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			bill.ID, p.ID, p.Name, p.PercentBP,
			p.Share.Amount, p.AmountOwed.Amount, p.AmountPaid.Amount, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	for pos := range bill.Items {
		item := &bill.Items[pos]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, bill_id, name, unit_price, quantity, tax_exempt, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, bill.ID, item.Name, item.UnitPrice.Amount, item.Quantity,
			boolToInt(item.TaxExempt), pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
		for sharePos, participantID := range item.SharedBy {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO item_shares (item_id, participant_id, position) VALUES (?, ?, ?)",
				item.ID, participantID, sharePos,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item share: %w", err)
			}
		}
	}

	for pos := range bill.Payments {
		event := &bill.Payments[pos]
		if event.ID == "" {
			event.ID = uuid.New().String()
		}
		if event.CreatedAt == 0 {
			event.CreatedAt = time.Now().Unix()
		}
		// The ledger is append-only: events already stored are left alone.
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO payment_events (id, bill_id, participant_id, amount,
			                                       method, reference, created_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID, bill.ID, event.ParticipantID, event.Amount.Amount,
			event.Method, event.Reference, event.CreatedAt, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment event: %w", err)
		}
	}

	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
