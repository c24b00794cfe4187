package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"receipts/internal/cli"
	"receipts/internal/export"
	applog "receipts/internal/log"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every item as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "file to write, - for stdout")
	return cmd
}

func runExport(cmd *cobra.Command, output string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logger = logger.WithComponent(applog.ComponentExport)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	var w io.Writer = cmd.OutOrStdout()
	if output != "-" {
		f, err := os.OpenFile(output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	summary, err := export.WriteCSV(context.Background(), w, repo, loc)
	if err != nil {
		return err
	}
	logger.Info("Export finished", "items", summary.Items, "bytes", summary.Bytes, "output", output)
	fmt.Fprintf(cmd.ErrOrStderr(), "exported %s items (%s)\n",
		humanize.Comma(int64(summary.Items)), humanize.Bytes(uint64(summary.Bytes)))
	return nil
}
