// cmd/monitor/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"amp-monitor/internal/alerting"
	"amp-monitor/internal/anomaly"
	"amp-monitor/internal/api"
	"amp-monitor/internal/auth"
	"amp-monitor/internal/config"
	"amp-monitor/internal/data"
	"amp-monitor/internal/ingest"
	"amp-monitor/internal/logging"
	"amp-monitor/internal/metrics"
	"amp-monitor/internal/notify"
	"amp-monitor/internal/storage"
	"amp-monitor/internal/websocket"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file or its directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("monitor stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("monitor stopped")
}

func run(parent context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancelRun := context.WithCancel(parent)
	defer cancelRun()

	m := metrics.New()

	// --- Stores ---
	amps := storage.NewAmplifierStore()
	notes := storage.NewNotificationStore(cfg.Notifications.Capacity)
	notes.Subscribe(func(list []data.NotificationMessage) { m.SetNotificationsActive(len(list)) })

	// --- Components ---
	manager := notify.NewManager(notes, cfg.Notifications.DefaultDuration, logging.Component(logger, "notify"))
	defer manager.Stop()

	alerter := alerting.NewAlerter(manager, logging.Component(logger, "alerting"))
	detector := anomaly.NewDetector(cfg)

	hub := websocket.NewHub(m, logging.Component(logger, "websocket"))
	detach := hub.Attach(amps, notes)
	defer detach()

	sink := ingest.NewSink(ingest.NewRouter(cfg), amps, manager, m, logging.Component(logger, "ingest")).
		WithAnomalyCheck(detector, alerter)
	sink.OnData = hub.BroadcastData

	client, err := ingest.NewClient(cfg, sink.Handle, logging.Component(logger, "mqtt"))
	if err != nil {
		return err
	}

	handler := api.NewAPIHandler(amps, notes, manager, sink, auth.NewAuthManager(cfg.Auth), logging.Component(logger, "api"))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, hub.ServeWS, m.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start ---
	var wg sync.WaitGroup
	errc := make(chan error, 1)

	wg.Add(3)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := client.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("mqtt client stopped")
		}
	}()
	go func() {
		defer wg.Done()
		logger.Info().Int("port", cfg.Server.Port).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	// --- Graceful Shutdown ---
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case runErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown")
	}
	cancelRun()
	wg.Wait()
	return runErr
}
