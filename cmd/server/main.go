package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/welth/internal/infrastructure/config"
	"github.com/iho/welth/internal/infrastructure/logger"
	"github.com/iho/welth/internal/infrastructure/metrics"
)

func main() {
	// A missing .env file is fine; the environment wins over it.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "welth"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Fatal().Err(err).Msg("server failed")
	}

	l.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	a, err := newApp(ctx, cfg, l, metrics.New())
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := a.scheduler.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			l.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	go a.limiter.Run(bgCtx, cfg.RateLimitWindow)

	serverErr := make(chan error, 1)
	go func() {
		l.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		l.Info().Msg("shutting down server...")
	case err := <-serverErr:
		cancelBackground()
		<-schedulerDone
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Let in-flight job runs finish their current entity.
	cancelBackground()
	select {
	case <-schedulerDone:
	case <-time.After(cfg.HTTPShutdownTimeout):
		l.Warn().Msg("scheduler did not stop in time")
	}

	return nil
}

