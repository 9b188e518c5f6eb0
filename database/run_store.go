// backend/database/run_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gewnthar/tvreport/backend/models"
)

// RunStore persists pipeline runs in the pipeline_runs table.
type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

const runColumns = `id, run_id, report_date, status, today_file, yesterday_file,
	channels_written, rows_written, matched_rows, error_code, error_message,
	started_at, finished_at`

// SaveRun inserts a run, or updates it when the run_id is already recorded.
func (s *RunStore) SaveRun(ctx context.Context, run models.RunRecord) error {
	if s.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	query := `
		INSERT INTO pipeline_runs (
			run_id, report_date, status, today_file, yesterday_file,
			channels_written, rows_written, matched_rows, error_code, error_message,
			started_at, finished_at
		) VALUES (
			:run_id, :report_date, :status, :today_file, :yesterday_file,
			:channels_written, :rows_written, :matched_rows, :error_code, :error_message,
			:started_at, :finished_at
		)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status),
			channels_written = VALUES(channels_written),
			rows_written = VALUES(rows_written),
			matched_rows = VALUES(matched_rows),
			error_code = VALUES(error_code),
			error_message = VALUES(error_message),
			finished_at = VALUES(finished_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		log.Printf("ERROR Database: Failed to save run '%s': %v", run.RunID, err)
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}

	log.Printf("Database: Saved run '%s' for %s with status %s\n", run.RunID, run.ReportDate.Format("2006-01-02"), run.Status)
	return nil
}

// LastSuccessful returns the latest succeeded run for reportDate, or nil if there is none.
func (s *RunStore) LastSuccessful(ctx context.Context, reportDate time.Time) (*models.RunRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	var run models.RunRecord
	err := s.db.GetContext(ctx, &run, `
		SELECT `+runColumns+`
		FROM pipeline_runs
		WHERE report_date = ? AND status = ?
		ORDER BY started_at DESC
		LIMIT 1`, reportDate.Format("2006-01-02"), models.RunStatusSucceeded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last successful run for %s: %w", reportDate.Format("2006-01-02"), err)
	}
	return &run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	var runs []models.RunRecord
	if err := s.db.SelectContext(ctx, &runs, `
		SELECT `+runColumns+`
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("failed to query pipeline_runs: %w", err)
	}
	return runs, nil
}
