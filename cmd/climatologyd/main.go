package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/pastcast/climatology/internal/adapter/http"
	kafkaadapter "github.com/pastcast/climatology/internal/adapter/kafka"
	"github.com/pastcast/climatology/internal/climatology"
	"github.com/pastcast/climatology/internal/config"
	"github.com/pastcast/climatology/internal/earthdata"
	"github.com/pastcast/climatology/internal/grid"
	"github.com/pastcast/climatology/internal/merra"
	"github.com/pastcast/climatology/internal/observability"
	"github.com/pastcast/climatology/internal/subset"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	creds := earthdata.Credentials{
		Username: cfg.EarthdataUsername,
		Password: cfg.EarthdataPassword,
	}
	if cfg.NetrcPath != "" {
		creds, err = earthdata.FromNetrc(cfg.NetrcPath, "urs.earthdata.nasa.gov")
		if err != nil {
			logger.Error("failed to read netrc", "path", cfg.NetrcPath, "error", err)
			os.Exit(1)
		}
	}

	store, err := earthdata.NewDiskStore(cfg.CacheDir)
	if err != nil {
		logger.Error("failed to open cache dir", "dir", cfg.CacheDir, "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()

	resolver := merra.NewResolver(cfg.MerraBaseURL, cfg.ListingTimeout, logger, metrics)
	fetcher := earthdata.NewFetcher(store, creds, cfg.DownloadTimeout, logger, metrics)
	wind := subset.NewClient(cfg.SubsetEndpoint, subset.Options{
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		PageSize:        cfg.PageSize,
		Timeout:         cfg.DownloadTimeout,
	}, store, creds, clock, logger, metrics)

	// Report publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher climatology.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = writer
		logger.Info("report publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("report publishing disabled")
	}

	svc := climatology.NewService(resolver, fetcher, wind, grid.FileExtractor{},
		publisher, clock, logger, metrics, cfg.YearsBack)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
