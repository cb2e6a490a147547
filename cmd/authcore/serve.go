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

	"github.com/eamcap/authcore"
	"github.com/eamcap/authcore/internal/config"
	"github.com/eamcap/authcore/internal/httpapi"
	promexport "github.com/eamcap/authcore/metrics/export/prometheus"
	"github.com/eamcap/authcore/store/memory"
	"github.com/eamcap/authcore/store/postgres"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engineCfg, err := cfg.Engine()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	builder := authcore.New().
		WithConfig(engineCfg).
		WithUserStore(store).
		WithLogger(logger).
		WithAuditSink(authcore.NewZapSink(logger))

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		builder = builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	var metrics http.Handler
	if engineCfg.Metrics.Enabled {
		metrics = promexport.NewPrometheusExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Auth:    engine,
			Logger:  logger,
			Mode:    cfg.Server.Mode,
			Metrics: metrics,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (authcore.UserStore, func(), error) {
	if cfg.URL == "" {
		logger.Warn("postgres.url not set, accounts are kept in memory")
		return memory.New(), func() {}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.New(pool)
	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("postgres schema migrated")
	}
	return store, pool.Close, nil
}
