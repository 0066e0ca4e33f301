package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"FuelStream/internal/config"
	"FuelStream/internal/csvmirror"
	"FuelStream/internal/feeder"
	"FuelStream/internal/fuelapi"
	"FuelStream/internal/ingestion"
	"FuelStream/internal/observability"
	"FuelStream/internal/ratelimit"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLoggerWithLevel("feeder", observability.ParseLogLevel(cfg.LogLevel))

	// Missing credentials are the one fatal error class, reported before the
	// first poll cycle begins.
	if err := cfg.ValidateFeeder(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().Msg("feeder starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Upstream API client ---
	apiClient := fuelapi.NewClient(
		cfg.APIBaseURL,
		cfg.APIKey,
		cfg.AuthorizationHeader,
		fuelapi.WithLimiter(ratelimit.Every(cfg.RequestInterval)),
	)

	// --- NATS ---
	nc, js, err := ingestion.ConnectNATS(cfg.NATSURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("nats connect")
	}
	defer nc.Close()
	logger.Info().Str("url", cfg.NATSURL).Msg("nats connected")

	if err := ingestion.EnsureStream(ctx, js, cfg.StreamName, cfg.Subject); err != nil {
		logger.Fatal().Err(err).Msg("ensure stream")
	}

	publisher := ingestion.NewPublisher(js, cfg.Subject, ratelimit.Every(cfg.PublishInterval), metrics, logger)

	// --- Optional CSV mirror ---
	var mirror feeder.EventMirror
	if cfg.MirrorPath != "" {
		m, err := csvmirror.Open(cfg.MirrorPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.MirrorPath).Msg("csv mirror disabled")
		} else {
			mirror = m
			logger.Info().Str("path", cfg.MirrorPath).Msg("csv mirror enabled")
		}
	}

	f := feeder.New(apiClient, publisher, mirror, cfg.PollCooldown, metrics, logger)

	errChan := make(chan error, 2)

	// 1. Poll loop
	if err := f.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("start feeder")
	}

	// 2. Prometheus metrics + health server
	go func() {
		errChan <- serveMetrics(ctx, cfg.MetricsAddr, healthChecker, logger)
	}()

	healthChecker.SetReady(true)
	logger.Info().
		Str("metrics", cfg.MetricsAddr).
		Str("subject", cfg.Subject).
		Dur("cooldown", cfg.PollCooldown).
		Msg("feeder ready")

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		if err != nil {
			logger.Error().Err(err).Msg("component failed, shutting down")
		}
	}

	healthChecker.SetReady(false)
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := f.Stop(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("feeder stop timed out")
	}

	logger.Info().Msg("feeder shutdown complete")
}

func serveMetrics(ctx context.Context, addr string, health *observability.HealthChecker, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", health.LivenessHandler)
	mux.HandleFunc("GET /readyz", health.ReadinessHandler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
