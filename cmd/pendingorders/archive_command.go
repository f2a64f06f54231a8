package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"pendingorders/internal/archive"
	"pendingorders/internal/config"
	"pendingorders/internal/ledger"
	"pendingorders/internal/logging"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and maintain the content-addressed archive",
	}
	archiveCmd.AddCommand(newArchiveListCommand(ctx))
	archiveCmd.AddCommand(newArchiveReindexCommand(ctx))
	return archiveCmd
}

func newArchiveListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived spreadsheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			index := archive.NewIndex(cfg.Paths.ArchiveDir, nil, logging.NewNop())
			entries, err := index.Entries()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Archive %s is empty\n", cfg.Paths.ArchiveDir)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					filepath.Base(e.Path),
					e.Fingerprint.String(),
					strconv.FormatInt(e.Size, 10),
				})
			}
			writeTable(out, []string{"Name", "Fingerprint", "Bytes"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight})
			return nil
		},
	}
}

func newArchiveReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the ledger's archive entries from the archive directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(cfg *config.Config, store *ledger.Store) error {
				index := archive.NewIndex(cfg.Paths.ArchiveDir, store, logging.NewNop())
				n, err := index.Rebuild(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d archived file(s)\n", n)
				return nil
			})
		},
	}
}
