// backend/runs_command.go
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRunsCommand(app *appContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ensure(); err != nil {
				return err
			}
			runs, err := app.runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.RunID,
					r.ReportDate.Format("2006-01-02"),
					colorStatus(r.Status, colorize),
					strconv.Itoa(r.ChannelsWritten),
					strconv.Itoa(r.RowsWritten),
					strconv.Itoa(r.MatchedRows),
					r.ErrorCode,
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Date", "Status", "Channels", "Rows", "Matched", "Error", "Started"},
				rows,
				nil,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
