package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/destinations"
	"github.com/joshu-sajeev/destinations/internal/logger"
	"github.com/joshu-sajeev/destinations/internal/pool"
	"github.com/joshu-sajeev/destinations/internal/storage/postgres"
	"github.com/joshu-sajeev/destinations/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(rootCtx)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx := log.WithContext(rootCtx)

	dbCfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		return err
	}
	db, err := postgres.ConnectDB(ctx, dbCfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	registry := destinations.FromConfig(ctx, cfg, nil)
	repo := postgres.NewDeliveryRepository(db)

	workerPool := pool.NewWorkerPool(repo, registry, registry.QueueNames(), pool.Options{
		Count:        cfg.Worker.Count,
		LockDuration: cfg.Worker.LockDuration,
		Worker: worker.Options{
			Features: cfg.FeatureSet(),
			Logger:   *log,
		},
	})

	workerPool.Start()
	log.Info().Strs("queues", registry.QueueNames()).Msg("worker pool active, press Ctrl+C to stop")

	<-rootCtx.Done()

	workerPool.Stop()
	log.Info().Msg("shutdown complete")
	return nil
}
