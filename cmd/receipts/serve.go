package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/tomb.v2"

	"receipts/internal/cache"
	"receipts/internal/cli"
	apphttp "receipts/internal/http"
	applog "receipts/internal/log"
	"receipts/internal/middleware/ratelimit"
	"receipts/internal/services"
	"receipts/internal/spending"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		return err
	}
	var publisher services.ChangePublisher
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	spend := spending.New(repo, repo.Changes(),
		spending.WithLocation(loc),
		spending.WithCache(cfg.CacheSize, cfg.CacheTTL),
	)
	caches := cache.NewManager()
	spend.Register(caches)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Repo:     repo,
		UseCases: services.New(repo, publisher),
		Spending: spend,
		Logger:   logger.WithComponent(applog.ComponentHTTP),
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		},
		TrustedProxies: cfg.TrustedProxies,
		ShortChartURLs: cfg.ShortChartURLs,
	})
	if err != nil {
		return err
	}
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
	})

	var t tomb.Tomb
	t.Go(func() error {
		logger.Info("Starting receipts server", "port", cfg.Port, "timezone", loc.String(), "amqp", amqpClient != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-ctx.Done():
		<-done
	case <-t.Dying():
	}

	if err := t.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
