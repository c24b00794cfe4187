package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"receipts/internal/cli"
	"receipts/internal/config"
	applog "receipts/internal/log"
	ports "receipts/internal/sheets"
	gsheet "receipts/internal/sheets/google"
	mem "receipts/internal/sheets/memory"
	"receipts/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror transactions into the export sheet",
		Long: "worker consumes change messages from AMQP and keeps the export sink " +
			"(EXPORT_BACKEND) in step with the database. With --once it rewrites " +
			"the sink from the database and exits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "resynchronize the whole sink once and exit")
	return cmd
}

func newSink(ctx context.Context, cfg *config.Config) (ports.Sink, error) {
	if cfg.ExportBackend == "sheets" {
		client, err := gsheet.NewFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return mem.New(loc), nil
}

func runWorker(once bool) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logger = logger.WithComponent(applog.ComponentWorker)

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	sink, err := newSink(context.Background(), cfg)
	if err != nil {
		return err
	}
	logger.Info("Export sink ready", "backend", cfg.ExportBackend)
	syncWorker := worker.NewSyncWorker(repo, sink)

	if once {
		return syncWorker.Resync(context.Background())
	}

	if cfg.AMQPURL == "" {
		return errors.New("worker needs AMQP_URL to receive changes, use --once for a one-off resync")
	}
	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 5*time.Second, nil)
	logger.Info("Starting receipts worker", "sync_interval", cfg.SyncInterval.String())

	if err := syncWorker.Run(ctx, amqpClient, cfg.SyncInterval); err != nil {
		logger.Error("Worker stopped", applog.FieldError, err.Error())
		return err
	}
	if ctx.Err() != nil {
		<-done
	}
	return nil
}
