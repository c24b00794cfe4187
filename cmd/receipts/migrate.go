package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"receipts/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if !status {
				if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
					return err
				}
				logger.Info("Migrations applied", "path", cfg.SQLiteDBPath)
			}

			version, dirty, err := storage.MigrationVersion(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			if dirty {
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", version)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only report the applied version")
	return cmd
}
