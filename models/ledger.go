// backend/models/ledger.go
package models

import (
	"strconv"
	"time"
)

// LedgerDateLayout is how the reporting date is written to the master ledger (DD/MM/YYYY).
const LedgerDateLayout = "02/01/2006"

// LedgerHeader is the fixed column order of the master ledger.
var LedgerHeader = []string{
	"Channel", "Date", "Start Time", "End Time", "Prog",
	"E_out", "F_out", "G_out", "H_out", "Genre1", "Genre2",
}

// LedgerRecord is the flattened, text-only form of a MergedRow.
// CSV tags match LedgerHeader; db tags match the ledger_rows table.
type LedgerRecord struct {
	ID               int64     `csv:"-" db:"id" json:"-"`
	Channel          string    `csv:"Channel" db:"channel" json:"channel"`
	Date             string    `csv:"Date" db:"report_date" json:"date"`
	StartTime        string    `csv:"Start Time" db:"start_time" json:"start_time"`
	EndTime          string    `csv:"End Time" db:"end_time" json:"end_time"`
	Program          string    `csv:"Prog" db:"program" json:"program"`
	Plays            string    `csv:"E_out" db:"plays" json:"plays"`
	UniqueViewers    string    `csv:"F_out" db:"unique_viewers" json:"unique_viewers"`
	ConcurrentViewer string    `csv:"G_out" db:"concurrent_viewers" json:"concurrent_viewers"`
	MinutesPerViewer string    `csv:"H_out" db:"minutes_per_viewer" json:"minutes_per_viewer"`
	Genre1           string    `csv:"Genre1" db:"genre1" json:"genre1"`
	Genre2           string    `csv:"Genre2" db:"genre2" json:"genre2"`
	CreatedAt        time.Time `csv:"-" db:"created_at" json:"-"`
}

// Record flattens the row into ledger column order. Unmatched metrics become empty cells.
func (r MergedRow) Record() LedgerRecord {
	rec := LedgerRecord{
		Channel:   r.Channel,
		Date:      r.Date.Format(LedgerDateLayout),
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Program:   r.Program,
		Genre1:    r.GenrePrimary,
		Genre2:    r.GenreSecondary,
	}
	if r.Metrics != nil {
		rec.Plays = formatMetric(r.Metrics.Plays)
		rec.UniqueViewers = formatMetric(r.Metrics.UniqueViewers)
		rec.ConcurrentViewer = formatMetric(r.Metrics.ConcurrentViewers)
		rec.MinutesPerViewer = formatMetric(r.Metrics.MinutesPerViewer)
	}
	return rec
}

// Cells returns the record in ledger column order.
func (r LedgerRecord) Cells() []string {
	return []string{
		r.Channel, r.Date, r.StartTime, r.EndTime, r.Program,
		r.Plays, r.UniqueViewers, r.ConcurrentViewer, r.MinutesPerViewer,
		r.Genre1, r.Genre2,
	}
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
