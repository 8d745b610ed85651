package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/delivery"
	"github.com/joshu-sajeev/destinations/internal/destinations"
	"github.com/joshu-sajeev/destinations/internal/logger"
	"github.com/joshu-sajeev/destinations/internal/storage/postgres"
	redisstore "github.com/joshu-sajeev/destinations/internal/storage/redis"
	"github.com/joshu-sajeev/destinations/middleware"
)

const requestTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "api:", err)
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

	if err := postgres.Migrate(ctx, sqlDB); err != nil {
		return err
	}

	var dedupe delivery.Deduper
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Open(ctx, redisstore.Config{Addr: cfg.Redis.Addr})
		if err != nil {
			return err
		}
		defer rdb.Close()
		dedupe = redisstore.NewDeduper(rdb, cfg.Redis.DedupeTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, duplicates are only caught by the message id index")
	}

	registry := destinations.FromConfig(ctx, cfg, nil)
	repo := postgres.NewDeliveryRepository(db)
	svc := delivery.NewDeliveryService(repo, registry, dedupe, cfg.FeatureSet())

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(*log))
	r.Use(middleware.TimeoutMiddleware(requestTimeout), middleware.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	delivery.NewDeliveryHandler(svc, registry).Register(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Strs("destinations", registry.Names()).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
