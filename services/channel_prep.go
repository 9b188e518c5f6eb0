// backend/services/channel_prep.go
package services

import (
	"time"

	"github.com/gewnthar/tvreport/backend/models"
	"github.com/gewnthar/tvreport/backend/utils"
)

// PrepareChannel turns one channel's combined schedule into the cleaned rows that go to the analytics job:
// normalize times, clean, split genres and stamp channel and reporting date.
// Times that cannot be normalized are left empty, which makes the cleaner drop the row.
func PrepareChannel(channel string, reportDate time.Time, rows []models.ScheduleRow) []models.NormalizedRow {
	normalized := make([]models.NormalizedRow, 0, len(rows))
	for _, r := range rows {
		start, _ := utils.NormalizeTime(r.StartTime)
		end, _ := utils.NormalizeTime(r.EndTime)
		normalized = append(normalized, models.NormalizedRow{
			StartTime:   start,
			EndTime:     end,
			Program:     r.Program,
			Description: r.Description,
		})
	}

	cleaned := CleanRows(channel, normalized)
	for i := range cleaned {
		cleaned[i].GenrePrimary, cleaned[i].GenreSecondary = utils.SplitGenre(cleaned[i].Description)
		cleaned[i].Channel = channel
		cleaned[i].Date = reportDate
	}
	return cleaned
}

// BuildTimeWindows lists the windows the analytics job should measure: rows whose start and end
// both parse, that do not wrap past midnight, and that end by 23:59.
func BuildTimeWindows(reportDate time.Time, rows []models.NormalizedRow) []models.TimeWindow {
	windows := make([]models.TimeWindow, 0, len(rows))
	for _, r := range rows {
		s, okS := utils.ParseTimeToInt(r.StartTime)
		e, okE := utils.ParseTimeToInt(r.EndTime)
		if !okS || !okE || e < s || e > lastMinuteOfDay {
			continue
		}
		windows = append(windows, models.TimeWindow{Date: reportDate, Start: r.StartTime, End: r.EndTime})
	}
	return windows
}
