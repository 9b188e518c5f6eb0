// backend/models/run.go
package models

import "time"

// DatasetFile is one schedule workbook offered by a dataset source.
type DatasetFile struct {
	ID         string    `json:"id"`    // Source-specific identifier (Drive file id or local path)
	Label      string    `json:"label"` // Human-written file name, carries the covered date(s)
	ModifiedAt time.Time `json:"modified_at"`
}

// Run statuses recorded in pipeline_runs.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
	RunStatusEmpty     = "empty" // No schedule rows survived cleaning; the date stays eligible for a rerun
)

// RunRecord tracks one pipeline execution.
type RunRecord struct {
	ID              int64      `db:"id" json:"-"`
	RunID           string     `db:"run_id" json:"run_id"`
	ReportDate      time.Time  `db:"report_date" json:"report_date"`
	Status          string     `db:"status" json:"status"`
	TodayFile       string     `db:"today_file" json:"today_file"`
	YesterdayFile   string     `db:"yesterday_file" json:"yesterday_file"`
	ChannelsWritten int        `db:"channels_written" json:"channels_written"`
	RowsWritten     int        `db:"rows_written" json:"rows_written"`
	MatchedRows     int        `db:"matched_rows" json:"matched_rows"`
	ErrorCode       string     `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage    string     `db:"error_message" json:"error_message,omitempty"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	FinishedAt      *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}
