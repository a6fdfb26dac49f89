package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/clipvault/backend/internal/config"
	"github.com/clipvault/backend/internal/db"
	"github.com/clipvault/backend/internal/handlers"
	"github.com/clipvault/backend/internal/httpserver"
	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/metrics"
	"github.com/clipvault/backend/internal/repositories"
	"github.com/clipvault/backend/internal/scheduler"
	"github.com/clipvault/backend/internal/storage"
)

// sweepInitialDelay keeps the first scheduled sweep off the startup path.
const sweepInitialDelay = 30 * time.Second

// Run bootstraps the ClipVault backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, seed, or sweep")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	case "sweep":
		return runSweep(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     logging.ParseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return logger
}

func loadValidated() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func serve(ctx context.Context) error {
	cfg, err := loadValidated()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx = logging.WithLogger(ctx, logger)

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	blobs, err := storage.New(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("configure object store: %w", err)
	}

	deps, svc, err := buildDependencies(pool, cfg, blobs, logger)
	if err != nil {
		return err
	}
	deps.Metrics = metrics.Handler()

	sweeps := scheduler.New(svc, cfg.SweepInterval, sweepInitialDelay, logger)
	sweeps.Start(ctx)
	defer sweeps.Stop()

	srv := httpserver.New(cfg.AppPort, handlers.NewRouter(deps))
	logger.Info("starting http server",
		slog.Int("port", cfg.AppPort),
		slog.String("object_store", cfg.ObjectStore.Driver),
		slog.Duration("retention", cfg.Retention),
	)

	if err := httpserver.Run(ctx, srv); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

// runSweep performs a single retention pass and prunes expired refresh
// sessions. It fails when any video could not be removed so cron surfaces it.
func runSweep(ctx context.Context) error {
	cfg, err := loadValidated()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx = logging.WithLogger(ctx, logger)

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	blobs, err := storage.New(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("configure object store: %w", err)
	}

	_, svc, err := buildDependencies(pool, cfg, blobs, logger)
	if err != nil {
		return err
	}

	result, err := svc.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	pruned, err := repositories.NewPostgresSessionStore(pool).DeleteExpired(ctx, time.Now())
	if err != nil {
		logger.Warn("prune expired sessions", slog.Any("error", err))
	}

	fmt.Printf("sweep: candidates=%d deleted=%d already_gone=%d blob_failures=%d row_failures=%d sessions_pruned=%d\n",
		result.Candidates, result.Deleted, result.AlreadyGone, result.BlobFailures, result.RowFailures, pruned)

	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("sweep: %d videos could not be removed", failed)
	}
	return nil
}
