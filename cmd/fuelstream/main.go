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
	"FuelStream/internal/ingestion"
	"FuelStream/internal/observability"
	"FuelStream/internal/queue"
	"FuelStream/internal/server"
	"FuelStream/internal/session"
	"FuelStream/internal/station"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLoggerWithLevel("fuelstream", observability.ParseLogLevel(cfg.LogLevel))

	if err := cfg.ValidateConsumer(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().Msg("fuelstream starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

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

	// --- Pipeline state ---
	// The queue decouples the delivery goroutine from the drain cycle; the
	// index is written only by the session's drain goroutine.
	q := queue.New()
	index := station.NewIndex()
	sess := session.New(q, index, cfg.MaxMessagesPerCycle, cfg.RefreshInterval, metrics, logger)

	// --- Subscription (transport goroutine) ---
	subscriber := ingestion.NewSubscriber(js, q, metrics, logger)
	if err := subscriber.Subscribe(ctx, cfg.StreamName, cfg.Subject, cfg.ConsumerName); err != nil {
		logger.Fatal().Err(err).Msg("subscribe")
	}

	errChan := make(chan error, 4)

	// 1. Drain loop (session goroutine)
	if err := sess.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("start session")
	}

	// 2. Snapshot/viewport HTTP server for the rendering layer
	httpServer := server.New(cfg.HTTPAddr, sess, healthChecker, logger)
	go func() {
		errChan <- httpServer.Start(ctx)
	}()

	// 3. Prometheus metrics server
	go func() {
		errChan <- serveMetrics(ctx, cfg.MetricsAddr, logger)
	}()

	healthChecker.SetReady(true)
	logger.Info().
		Str("http", cfg.HTTPAddr).
		Str("metrics", cfg.MetricsAddr).
		Str("subject", cfg.Subject).
		Msg("fuelstream ready")

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
	subscriber.Stop()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := sess.Stop(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("session stop timed out")
	}

	logger.Info().Msg("fuelstream shutdown complete")
}

func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
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
