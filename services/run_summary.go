// backend/services/run_summary.go
package services

import (
	"github.com/montanaflynn/stats"
)

// ChannelSummary aggregates the audience measures of one channel's matched rows.
type ChannelSummary struct {
	Channel               string  `json:"channel"`
	Rows                  int     `json:"rows"`
	MatchedRows           int     `json:"matched_rows"`
	TotalPlays            float64 `json:"total_plays"`
	TotalUniqueViewers    float64 `json:"total_unique_viewers"`
	PeakConcurrentViewers float64 `json:"peak_concurrent_viewers"`
	MeanMinutesPerViewer  float64 `json:"mean_minutes_per_viewer"`
}

// SummarizeRun builds one summary per channel batch, in batch order.
// Channels without any matched row report zero measures.
func SummarizeRun(result *RunResult) []ChannelSummary {
	if result == nil {
		return nil
	}
	summaries := make([]ChannelSummary, 0, len(result.Batches))
	for _, b := range result.Batches {
		s := ChannelSummary{Channel: b.Channel, Rows: len(b.Rows), MatchedRows: b.MatchedRows}

		var plays, uniques, ccu, minutes stats.Float64Data
		for _, r := range b.Rows {
			if r.Metrics == nil {
				continue
			}
			plays = append(plays, r.Metrics.Plays)
			uniques = append(uniques, r.Metrics.UniqueViewers)
			ccu = append(ccu, r.Metrics.ConcurrentViewers)
			minutes = append(minutes, r.Metrics.MinutesPerViewer)
		}
		if len(plays) > 0 {
			// Errors only come back for empty input.
			s.TotalPlays, _ = stats.Sum(plays)
			s.TotalUniqueViewers, _ = stats.Sum(uniques)
			s.PeakConcurrentViewers, _ = stats.Max(ccu)
			s.MeanMinutesPerViewer, _ = stats.Mean(minutes)
		}
		summaries = append(summaries, s)
	}
	return summaries
}
