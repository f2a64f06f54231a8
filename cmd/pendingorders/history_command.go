package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pendingorders/internal/config"
	"pendingorders/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(_ *config.Config, store *ledger.Store) error {
				if runID != "" {
					return showRunEvents(cmd, store, runID)
				}
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.RunID,
						run.StartedAt.Local().Format(time.DateTime),
						formatDuration(run),
						string(run.State),
						strconv.Itoa(run.FilesFound),
						strconv.Itoa(run.Processed),
						strconv.Itoa(run.Failed),
						strconv.Itoa(run.Duplicates),
						baseOrDash(run.ReportPath),
					})
				}
				writeTable(out,
					[]string{"Run", "Started", "Took", "State", "Found", "Done", "Failed", "Dup", "Report"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show per-file outcomes for one run")
	return cmd
}

func showRunEvents(cmd *cobra.Command, store *ledger.Store, runID string) error {
	events, err := store.FileEvents(cmd.Context(), runID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintf(out, "No file events recorded for run %s\n", runID)
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{ev.FileName, ev.Fingerprint, ev.Outcome, ev.Detail})
	}
	writeTable(out, []string{"File", "Fingerprint", "Outcome", "Detail"}, rows, nil)
	return nil
}

func formatDuration(run ledger.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}

func baseOrDash(path string) string {
	if path == "" {
		return "-"
	}
	return filepath.Base(path)
}
