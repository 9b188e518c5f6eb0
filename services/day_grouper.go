// backend/services/day_grouper.go
package services

import (
	"github.com/gewnthar/tvreport/backend/models"
	"github.com/gewnthar/tvreport/backend/utils"
)

// GroupMode selects which side of midnight a day sheet contributes.
type GroupMode string

const (
	// ModeToday keeps rows starting at or before 23:59 (start digits <= 2359).
	ModeToday GroupMode = "today"
	// ModeYesterday keeps rows whose start is encoded past midnight ("24:30" -> 2430).
	// Read from the previous day's sheet, they are the early hours of the reporting day.
	ModeYesterday GroupMode = "yesterday"
)

const lastMinuteOfDay = 2359

// Column positions in a schedule sheet row.
const (
	colChannel     = 0
	colStartTime   = 2
	colEndTime     = 3
	colProgram     = 4
	colDescription = 5
)

// GroupRows buckets a day sheet's rows by target channel, keeping only the rows that belong to mode.
// Rows for other channels and rows whose start time has no digits are dropped silently.
// Every target channel has an entry in the result, possibly empty.
func GroupRows(rows [][]string, mode GroupMode, targets []string) map[string][]models.ScheduleRow {
	wanted := utils.ChannelSet(targets)
	grouped := make(map[string][]models.ScheduleRow, len(targets))
	for _, ch := range targets {
		grouped[utils.NormalizeChannelCode(ch)] = []models.ScheduleRow{}
	}

	for _, row := range rows {
		ch := utils.NormalizeChannelCode(cell(row, colChannel))
		if !wanted[ch] {
			continue
		}
		t, ok := utils.ParseTimeToInt(cell(row, colStartTime))
		if !ok {
			continue
		}

		switch mode {
		case ModeYesterday:
			if t <= lastMinuteOfDay {
				continue
			}
		case ModeToday:
			if t > lastMinuteOfDay {
				continue
			}
		default:
			continue
		}

		grouped[ch] = append(grouped[ch], models.ScheduleRow{
			Channel:     ch,
			StartTime:   cell(row, colStartTime),
			EndTime:     cell(row, colEndTime),
			Program:     cell(row, colProgram),
			Description: cell(row, colDescription),
		})
	}
	return grouped
}

// CombineDays builds one continuous schedule per channel: the previous sheet's rolled-over rows
// followed by the current sheet's same-day rows.
func CombineDays(yesterday, today map[string][]models.ScheduleRow, targets []string) map[string][]models.ScheduleRow {
	combined := make(map[string][]models.ScheduleRow, len(targets))
	for _, ch := range targets {
		ch = utils.NormalizeChannelCode(ch)
		rows := make([]models.ScheduleRow, 0, len(yesterday[ch])+len(today[ch]))
		rows = append(rows, yesterday[ch]...)
		rows = append(rows, today[ch]...)
		combined[ch] = rows
	}
	return combined
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
