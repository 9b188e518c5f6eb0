// backend/services/row_cleaner.go
package services

import (
	"strings"

	"github.com/gewnthar/tvreport/backend/models"
	"github.com/gewnthar/tvreport/backend/utils"
)

// minSpanMinutes is the longest span still treated as filler; rows at or under it are dropped.
const minSpanMinutes = 5

// CleanRows removes filler rows and coalesces consecutive airings of the same program for one channel.
//
// Pass one drops rows spanning five minutes or less; a row with either time unparsable spans zero minutes.
// Pass two folds the survivors, extending the last kept row's end time over any immediately
// following row with the same program name. Movies on RCTI ("SINEMA") are never coalesced.
// The input slice is left untouched.
func CleanRows(channel string, rows []models.NormalizedRow) []models.NormalizedRow {
	if len(rows) == 0 {
		return []models.NormalizedRow{}
	}

	kept := make([]models.NormalizedRow, 0, len(rows))
	for _, r := range rows {
		if spanMinutes(r) > minSpanMinutes {
			kept = append(kept, r)
		}
	}

	cleaned := make([]models.NormalizedRow, 0, len(kept))
	for _, r := range kept {
		if n := len(cleaned); n > 0 {
			last := &cleaned[n-1]
			if utils.SameProgram(r.Program, last.Program) && !isUncoalescable(channel, r.Program) {
				last.EndTime = r.EndTime
				continue
			}
		}
		cleaned = append(cleaned, r)
	}
	return cleaned
}

func spanMinutes(r models.NormalizedRow) int {
	start, okStart := utils.ParseMinutes(r.StartTime)
	end, okEnd := utils.ParseMinutes(r.EndTime)
	if !okStart || !okEnd {
		return 0
	}
	d := end - start
	if d < 0 {
		d = -d
	}
	return d
}

func isUncoalescable(channel, program string) bool {
	return strings.EqualFold(strings.TrimSpace(channel), models.ChannelRCTI) &&
		strings.EqualFold(strings.TrimSpace(program), "SINEMA")
}
