package main

import (
	"os"

	"github.com/spf13/cobra"

	"receipts/internal/cli"
	"receipts/internal/config"
	applog "receipts/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "receipts",
		Short:        "Track receipts, items and spending",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				cli.LoadEnvFile(envFile)
				return
			}
			cli.LoadEnvFile()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env)")

	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newExportCmd(),
		newMigrateCmd(),
		newOAuthCmd(),
	)
	return root
}

// setup loads and validates the configuration and builds the logger every
// subcommand starts from.
func setup() (*config.Config, *applog.Logger, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, cli.SetupLogger(cfg, cfg.LogFormat == "json"), nil
}
