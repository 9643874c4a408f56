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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/prodpulse/internal/application"
	appanalysis "github.com/bryanwahyu/prodpulse/internal/application/analysis"
	appdiag "github.com/bryanwahyu/prodpulse/internal/application/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/application/ratelimit"
	"github.com/bryanwahyu/prodpulse/internal/config"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai"
	"github.com/bryanwahyu/prodpulse/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/prodpulse/internal/infra/storage"
	"github.com/bryanwahyu/prodpulse/internal/logging"
	"github.com/bryanwahyu/prodpulse/internal/middleware"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().Int("port", 0, "override server.port")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	logging.SetDefault(logger)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.With(ctx, logger)

	// init store
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close history store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	// init diagnosis backend
	backend, err := ai.NewBackend(ctx, cfg.Provider)
	if err != nil {
		return err
	}
	provider := appdiag.NewService(backend, appdiag.WithFallbackObserver(metrics))

	svc := &appanalysis.Service{
		Store:    store,
		Limiter:  ratelimit.New(store, cfg.RateLimit.MaxRequests, cfg.Window()),
		Provider: provider,
		Clock:    application.SystemClock{},
		Limits: appanalysis.Limits{
			MinChars: cfg.Input.MinChars,
			MaxChars: cfg.Input.MaxChars,
			MaxWords: cfg.Input.MaxWords,
		},
		Observer: metrics,
		Strict:   cfg.RateLimit.Strict,
	}

	checkers := map[string]middleware.HealthChecker{
		"database": middleware.PingChecker{Target: store},
	}

	// init minio
	if cfg.Minio.Enabled {
		archive, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return err
		}
		svc.Archive = archive
	}

	burst := middleware.NewBurstLimiter(cfg.Burst.RequestsPerSecond, cfg.Burst.Burst)

	handler := httpserver.NewRouter(httpserver.Options{
		Service:     svc,
		Logger:      logger,
		Metrics:     metrics,
		Burst:       burst,
		Checkers:    checkers,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		burst.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server listening",
			"addr", addr,
			"provider", provider.BackendName(),
			"database", cfg.Database.Driver,
			"quota", cfg.RateLimit.MaxRequests,
			"window_hours", cfg.RateLimit.WindowHours,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
