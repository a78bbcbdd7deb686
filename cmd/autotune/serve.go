package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/cwbudde/algo-autotune/internal/jobs"
	"github.com/cwbudde/algo-autotune/internal/observe"
	"github.com/cwbudde/algo-autotune/internal/server"
)

// telemetryFlushTimeout bounds the exporter flush at exit.
const telemetryFlushTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	logger := observe.NewLogger(os.Stderr, string(cfg.Server.LogLevel), string(cfg.Server.LogFormat))
	slog.SetDefault(logger)

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "autotune",
		ServiceVersion: version,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	met, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}

	store, err := jobs.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	pipe, err := jobs.NewPipeline(cfg.Processing, met, logger)
	if err != nil {
		return err
	}

	svc, err := jobs.NewService(store, pipe, cfg, jobs.WithMetrics(met))
	if err != nil {
		return err
	}

	slog.Info("autotune starting",
		"version", version,
		"listen_addr", cfg.Server.ListenAddr,
		"data_dir", cfg.Storage.DataDir,
		"detector", cfg.Processing.Detector,
		"sample_rate", cfg.Processing.SampleRate,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(svc, cfg.Server, server.WithMetrics(met), server.WithLogger(logger))
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "err", err)
		return err
	}

	slog.Info("goodbye")
	return nil
}
