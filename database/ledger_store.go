// backend/database/ledger_store.go
package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/gewnthar/tvreport/backend/models"
)

// LedgerStore appends ledger rows to the ledger_rows table.
type LedgerStore struct {
	db *sqlx.DB
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const insertLedgerRow = `
	INSERT INTO ledger_rows (
		channel, report_date, start_time, end_time, program,
		plays, unique_viewers, concurrent_viewers, minutes_per_viewer,
		genre1, genre2, created_at
	) VALUES (
		:channel, :report_date, :start_time, :end_time, :program,
		:plays, :unique_viewers, :concurrent_viewers, :minutes_per_viewer,
		:genre1, :genre2, NOW()
	)`

// AppendRows inserts one channel batch in a single transaction; either every row lands or none do.
func (s *LedgerStore) AppendRows(ctx context.Context, rows []models.MergedRow) error {
	if s.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	if len(rows) == 0 {
		log.Println("Database: No ledger rows provided to save.")
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for ledger rows: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertLedgerRow)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		rec := r.Record()
		if _, err := stmt.ExecContext(ctx, rec); err != nil {
			log.Printf("ERROR Database: Failed to save ledger row %+v: %v", rec, err)
			return fmt.Errorf("failed to insert ledger row %s %s-%s '%s': %w", rec.Channel, rec.StartTime, rec.EndTime, rec.Program, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction for ledger rows: %w", err)
	}
	log.Printf("Database: Successfully saved %d ledger row(s).\n", len(rows))
	return nil
}

// RowsForDate returns the ledger rows of one reporting date ("DD/MM/YYYY"), in insertion order.
func (s *LedgerStore) RowsForDate(ctx context.Context, ledgerDate string) ([]models.LedgerRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	var records []models.LedgerRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, channel, report_date, start_time, end_time, program,
		       plays, unique_viewers, concurrent_viewers, minutes_per_viewer,
		       genre1, genre2, created_at
		FROM ledger_rows
		WHERE report_date = ?
		ORDER BY id`, ledgerDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger rows for %s: %w", ledgerDate, err)
	}
	return records, nil
}
