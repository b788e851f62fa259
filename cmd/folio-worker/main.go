package main

import (
	"os"

	"folio/internal/amqp"
	"folio/internal/backend"
	"folio/internal/cli"
	"folio/internal/config"
	flog "folio/internal/log"
	"folio/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, flog.ComponentWorker, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", flog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting folio-worker", flog.FieldBackend, cfg.DataBackend, "interval", cfg.SyncInterval)
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process; the mirror will only hold defaults")
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	primary, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize record store", flog.FieldError, err, flog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer primary.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", flog.FieldError, err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger.WithComponent(flog.ComponentBackend).Logger).CreateMirror(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", flog.FieldError, err)
		os.Exit(1)
	}
	defer mirror.Close()

	if info, err := mirror.Describe(ctx); err == nil {
		logger.Info("Mirror ready", flog.FieldBackend, info.Backend, flog.FieldLocation, info.Location)
	}

	w := worker.NewMirrorWorker(primary.Store, mirror.Store, cfg.SyncInterval)

	var events worker.EventSource
	if cfg.HasAMQP() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic sync", flog.FieldError, err)
		} else {
			defer client.Close()
			events = client
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided, relying on periodic sync")
	}

	if err := w.Run(ctx, events); err != nil {
		logger.Error("Worker stopped with error", flog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", "syncs", w.Syncs())
}
