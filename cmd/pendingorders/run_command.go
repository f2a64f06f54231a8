package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pendingorders/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process every new spreadsheet in the intake directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, ctx)
		},
	}
}

func runBatch(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	r := runner.New(cfg, runner.Options{
		Console:  cmd.ErrOrStderr(),
		Progress: cmd.OutOrStdout(),
	})
	summary, err := r.Run(cmd.Context())
	if err != nil {
		if summary.LogPath != "" {
			return fmt.Errorf("%w (see %s)", err, summary.LogPath)
		}
		return err
	}

	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Files found", fmt.Sprintf("%d", summary.Found)},
		{"Processed", fmt.Sprintf("%d", summary.Processed)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Duplicates", fmt.Sprintf("%d", summary.Duplicates)},
	}
	if summary.ReportPath != "" {
		rows = append(rows,
			[]string{"Report", filepath.Base(summary.ReportPath)},
			[]string{"Pending orders", fmt.Sprintf("%d", summary.Rows)},
		)
	}
	rows = append(rows, []string{"Log", summary.LogPath})
	writeTable(out, []string{"Run " + summary.RunID, ""}, rows, []columnAlignment{alignLeft, alignRight})
	return nil
}
