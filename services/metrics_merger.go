// backend/services/metrics_merger.go
package services

import (
	"strconv"
	"strings"

	"github.com/gewnthar/tvreport/backend/models"
	"github.com/gewnthar/tvreport/backend/utils"
)

// minMetricsColumns is start, end, plays, unique, concurrent, minutes-per-viewer.
const minMetricsColumns = 6

// BuildMetricIndex keys the analytics output rows by TimeKey.
// Rows that are too short, have no digits in either time, or carry an unparsable measure are skipped.
// When two rows share a TimeKey the later one wins.
func BuildMetricIndex(raw [][]string) map[models.TimeKey]models.MetricRecord {
	index := make(map[models.TimeKey]models.MetricRecord, len(raw))
	for _, row := range raw {
		if len(row) < minMetricsColumns {
			continue
		}
		key, ok := timeKey(row[0], row[1])
		if !ok {
			continue
		}
		rec, ok := parseMetricRow(row)
		if !ok {
			continue
		}
		index[key] = rec
	}
	return index
}

// MergeMetrics annotates each row with the metrics whose TimeKey matches exactly.
// Unmatched rows keep nil Metrics. The second result is the number of matched rows.
func MergeMetrics(rows []models.NormalizedRow, raw [][]string) ([]models.MergedRow, int) {
	index := BuildMetricIndex(raw)

	merged := make([]models.MergedRow, 0, len(rows))
	matched := 0
	for _, r := range rows {
		m := models.MergedRow{NormalizedRow: r}
		if key, ok := timeKey(r.StartTime, r.EndTime); ok {
			if rec, found := index[key]; found {
				m.Metrics = &rec
				matched++
			}
		}
		merged = append(merged, m)
	}
	return merged, matched
}

func timeKey(start, end string) (models.TimeKey, bool) {
	s, ok := utils.TimeKeyDigits(start)
	if !ok {
		return models.TimeKey{}, false
	}
	e, ok := utils.TimeKeyDigits(end)
	if !ok {
		return models.TimeKey{}, false
	}
	return models.TimeKey{Start: s, End: e}, true
}

// parseMetricRow reads the four measures. Counts use "," as a thousands separator; minutes per
// viewer comes from a sheet that sometimes uses "," as the decimal separator.
func parseMetricRow(row []string) (models.MetricRecord, bool) {
	plays, err1 := parseThousands(row[2])
	unique, err2 := parseThousands(row[3])
	concurrent, err3 := parseThousands(row[4])
	minutes, err4 := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(row[5], ",", ".")), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return models.MetricRecord{}, false
	}
	return models.MetricRecord{
		Plays:             plays,
		UniqueViewers:     unique,
		ConcurrentViewers: concurrent,
		MinutesPerViewer:  minutes,
	}, true
}

func parseThousands(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", "")), 64)
}
