// Command lookup runs a single climatology query from the command line and
// prints the report as JSON. It uses the same configuration and wiring as
// the service, which makes it useful for smoke-testing credentials and
// archive reachability.
//
// Usage:
//
//	go run ./cmd/lookup -day 4 -month 7 -lat 30.25 -lon -97.75 -years 20
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/pastcast/climatology/internal/climatology"
	"github.com/pastcast/climatology/internal/config"
	"github.com/pastcast/climatology/internal/earthdata"
	"github.com/pastcast/climatology/internal/grid"
	"github.com/pastcast/climatology/internal/merra"
	"github.com/pastcast/climatology/internal/observability"
	"github.com/pastcast/climatology/internal/subset"
)

func main() {
	day := flag.Int("day", 0, "day of month (1-31)")
	month := flag.Int("month", 0, "month (1-12)")
	lat := flag.Float64("lat", 0, "latitude in degrees")
	lon := flag.Float64("lon", 0, "longitude in degrees")
	years := flag.Int("years", 0, "lookback window in years (0 = configured default)")
	flag.Parse()

	if err := run(*day, *month, *lat, *lon, *years); err != nil {
		fmt.Fprintln(os.Stderr, "lookup failed:", err)
		os.Exit(1)
	}
}

func run(day, month int, lat, lon float64, years int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetricsForTesting()

	creds := earthdata.Credentials{
		Username: cfg.EarthdataUsername,
		Password: cfg.EarthdataPassword,
	}
	if cfg.NetrcPath != "" {
		creds, err = earthdata.FromNetrc(cfg.NetrcPath, "urs.earthdata.nasa.gov")
		if err != nil {
			return fmt.Errorf("read netrc: %w", err)
		}
	}

	store, err := earthdata.NewDiskStore(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("open cache dir: %w", err)
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

	svc := climatology.NewService(resolver, fetcher, wind, grid.FileExtractor{},
		nil, clock, logger, metrics, cfg.YearsBack)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := svc.Aggregate(ctx, day, month, lat, lon, years)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
