// backend/models/schedule.go
package models

import "time"

// Known channel codes. The spreadsheet channel column is compared against these after trimming and upper-casing.
const (
	ChannelRCTI  = "RCTI"
	ChannelMNCTV = "MNCTV"
	ChannelGTV   = "GTV"
	ChannelINEWS = "INEWS"
)

// ScheduleRow is one programming row as read from a broadcast-schedule sheet.
// Times are raw text until normalized.
type ScheduleRow struct {
	Channel     string
	StartTime   string
	EndTime     string
	Program     string
	Description string
}

// NormalizedRow is a ScheduleRow with canonical "HH:MM" times and the genre fields split out of the description.
type NormalizedRow struct {
	Channel        string
	Date           time.Time // Reporting date stamped by the pipeline
	StartTime      string    // "HH:MM", empty if the raw value could not be normalized
	EndTime        string
	Program        string
	Description    string
	GenrePrimary   string
	GenreSecondary string
}

// TimeKey is the (start, end) join key between schedule rows and metrics rows.
// Both halves are four-digit zero-padded digit strings, e.g. {"2300", "2330"}.
type TimeKey struct {
	Start string
	End   string
}

// MetricRecord holds the four audience measures produced by the analytics job for one time window.
type MetricRecord struct {
	Plays             float64
	UniqueViewers     float64
	ConcurrentViewers float64
	MinutesPerViewer  float64
}

// MergedRow is the final ledger unit. Metrics is nil when no metrics row matched the row's TimeKey.
type MergedRow struct {
	NormalizedRow
	Metrics *MetricRecord
}

// TimeWindow is a single (date, start, end) row handed to the analytics job's input sheet.
type TimeWindow struct {
	Date  time.Time
	Start string
	End   string
}
