package database

import (
	"context"
	"fmt"
	"time"

	"cafe-pos/internal/models"

	"github.com/jackc/pgx/v5"
)

type ledgerDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Ledger appends finalized bills to the bills and bill_items tables. Menu
// and order state are never reloaded from it; only the day's last bill
// sequence is read back so numbering resumes after a restart.
type Ledger struct {
	db       ledgerDB
	terminal string
}

// NewLedger creates a ledger writing bills tagged with terminal
func NewLedger(db ledgerDB, terminal string) *Ledger {
	return &Ledger{
		db:       db,
		terminal: terminal,
	}
}

// RecordBill stores the bill header and its items in one transaction
func (l *Ledger) RecordBill(ctx context.Context, bill *models.Bill) error {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var billID int
	err = tx.QueryRow(ctx, InsertBillSQL,
		bill.Number, l.terminal, bill.IssuedAt, bill.ItemCount(), bill.Total.String(),
	).Scan(&billID)
	if err != nil {
		return fmt.Errorf("failed to insert bill %s: %w", bill.Number, err)
	}

	for i, item := range bill.Items {
		if _, err := tx.Exec(ctx, InsertBillItemSQL, billID, i+1, item.Name, item.Price.String()); err != nil {
			return fmt.Errorf("failed to insert item %d of bill %s: %w", i+1, bill.Number, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bill %s: %w", bill.Number, err)
	}
	return nil
}

// LastBillSequence returns the highest sequence this terminal has already
// recorded for day, or 0 when there is none
func (l *Ledger) LastBillSequence(ctx context.Context, day time.Time) (int, error) {
	prefix := models.BillNumberPrefix(day)

	var last int
	if err := l.db.QueryRow(ctx, SelectLastBillSequenceSQL, l.terminal, prefix).Scan(&last); err != nil {
		return 0, fmt.Errorf("failed to read last bill sequence for %s: %w", prefix, err)
	}
	return last, nil
}
