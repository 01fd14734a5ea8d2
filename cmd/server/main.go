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

	"github.com/rs/zerolog/log"

	"stockdash/internal/chart"
	"stockdash/internal/config"
	"stockdash/internal/dashboard"
	"stockdash/internal/logger"
	"stockdash/internal/provider/sources"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("Server stopped")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := logger.Init(logger.Config{
		Level:         cfg.Log.Level,
		Format:        cfg.Log.Format,
		FileEnabled:   cfg.Log.FileEnabled,
		FilePath:      cfg.Log.FilePath,
		RotationSize:  cfg.Log.RotationSizeMB,
		RetentionDays: cfg.Log.RetentionDays,
		ServiceName:   "stockdash",
	}); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	set, err := sources.New(cfg, sources.HTTPClient(cfg))
	if err != nil {
		return err
	}
	dash := dashboard.New(dashboard.Options{
		Quotes:         set.Quotes,
		History:        set.History,
		DefaultTickers: cfg.Dashboard.DefaultTickers,
		Concurrency:    cfg.Dashboard.FetchConcurrency,
	})
	charts := chart.NewPresenter(&chart.Cache{
		TTL:      time.Duration(cfg.Chart.CacheTTLSeconds) * time.Second,
		MaxItems: cfg.Chart.CacheMaxItems,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := dash.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial quote fetch failed")
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newServer(dash, charts).routes(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("provider", set.Quotes.Name()).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
