// backend/run_command.go
package main

import (
	"fmt"
	"math"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gewnthar/tvreport/backend/services"
)

func newRunCommand(app *appContext) *cobra.Command {
	var opts services.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build and append today's ledger rows",
		Long: "Run the pipeline once. Without --force a reporting date that already has a successful run is skipped.\n" +
			"--dry-run merges against the metrics already on the exchange workbook and writes nothing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ensure(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := app.pipeline.Run(ctx, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Skipped {
				fmt.Fprintf(out, "Reporting date %s already processed; use --force to run again.\n", result.ReportDate.Format("2006-01-02"))
				return nil
			}
			fmt.Fprintf(out, "Run %s for %s (today: %s, yesterday: %s)\n", result.RunID,
				result.ReportDate.Format("2006-01-02"), result.TodayFile, result.YesterdayFile)
			fmt.Fprintln(out, renderSummary(services.SummarizeRun(result)))
			if opts.DryRun {
				fmt.Fprintln(out, "Dry run: nothing was published, triggered or written.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Run even if the reporting date was already processed")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Preview the merge without publishing, triggering or writing")
	return cmd
}

func renderSummary(summaries []services.ChannelSummary) string {
	rows := make([][]string, 0, len(summaries))
	var total services.ChannelSummary
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Channel,
			strconv.Itoa(s.Rows),
			strconv.Itoa(s.MatchedRows),
			formatCount(s.TotalPlays),
			formatCount(s.TotalUniqueViewers),
			formatCount(s.PeakConcurrentViewers),
			strconv.FormatFloat(s.MeanMinutesPerViewer, 'f', 2, 64),
		})
		total.Rows += s.Rows
		total.MatchedRows += s.MatchedRows
		total.TotalPlays += s.TotalPlays
		total.TotalUniqueViewers += s.TotalUniqueViewers
		total.PeakConcurrentViewers = math.Max(total.PeakConcurrentViewers, s.PeakConcurrentViewers)
	}

	var footer []string
	if len(summaries) > 1 {
		footer = []string{
			"Total",
			strconv.Itoa(total.Rows),
			strconv.Itoa(total.MatchedRows),
			formatCount(total.TotalPlays),
			formatCount(total.TotalUniqueViewers),
			formatCount(total.PeakConcurrentViewers),
			"",
		}
	}
	return renderTable(
		[]string{"Channel", "Rows", "Matched", "Plays", "Unique", "Peak CCU", "Avg Min/UD"},
		rows,
		footer,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}
