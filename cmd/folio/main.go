package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/amqp"
	"folio/internal/cache"
	"folio/internal/cli"
	"folio/internal/config"
	apphttp "folio/internal/http"
	flog "folio/internal/log"
	"folio/internal/services"
)

func main() {
	cli.LoadEnvFile()
	// amounts are JSON numbers on the wire
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, flog.ComponentApp, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", flog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize record store", flog.FieldError, err, flog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close record store", flog.FieldError, err)
		}
	}()

	opts := []services.Option{
		services.WithCacheTTL(cfg.CacheTTL),
		services.WithLogger(logger.Logger),
	}
	if cfg.HasAMQP() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the mirror catches up on its next periodic sync
			logger.Warn("AMQP unavailable, change events disabled", flog.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Publishing change events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	portfolio := services.NewPortfolio(store.Store, opts...)

	caches := cache.NewManager()
	if c := portfolio.Cache(); c != nil {
		caches.Register(c)
		caches.Start(ctx, time.Minute)
	}
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, portfolio, store, apphttp.WithLogger(logger))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", flog.FieldError, err, flog.FieldOperation, flog.OpShutdown)
		}
	}()

	logger.Info("Starting folio server", "port", cfg.Port, flog.FieldBackend, store.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", flog.FieldError, err, "port", cfg.Port)
		cancel()
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
