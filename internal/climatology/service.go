// Package climatology orchestrates the multi-year lookup: resolve, fetch,
// and extract per year, then fold the surviving values into frequency and
// average statistics.
package climatology

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/pastcast/climatology/internal/domain"
	"github.com/pastcast/climatology/internal/merra"
	"github.com/pastcast/climatology/internal/observability"
)

// Resolver finds the archive URL for one calendar date, consulting the
// request-owned listing index.
type Resolver interface {
	Resolve(ctx context.Context, idx *merra.Index, year, month, day int) (string, error)
}

// Fetcher returns a local path for an archive URL, downloading on cache miss.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// WindSource obtains one year's wind subset files via the asynchronous
// subset job protocol.
type WindSource interface {
	FetchYear(ctx context.Context, year int, lat, lon float64) ([]string, error)
}

// Extractor reduces one grid file to per-day metrics around a coordinate.
type Extractor interface {
	ExtractFile(path string, lat, lon float64, metrics []domain.Metric) (domain.DayMetrics, error)
}

// Publisher emits a completed lookup to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, rec domain.ReportRecord) error
}

// Service is the aggregation engine.
type Service struct {
	resolver  Resolver
	fetcher   Fetcher
	wind      WindSource
	extractor Extractor
	publisher Publisher // nil when publishing is disabled
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	defaultYearsBack int
}

// NewService wires the aggregation engine. publisher may be nil.
func NewService(resolver Resolver, fetcher Fetcher, wind WindSource, extractor Extractor, publisher Publisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, defaultYearsBack int) *Service {
	return &Service{
		resolver:         resolver,
		fetcher:          fetcher,
		wind:             wind,
		extractor:        extractor,
		publisher:        publisher,
		clock:            clock,
		logger:           logger,
		metrics:          metrics,
		defaultYearsBack: defaultYearsBack,
	}
}

// Aggregate computes the historical report for one day/month/location.
// yearsBack ≤ 0 selects the configured default. Parameter errors are fatal;
// everything downstream degrades year by year. When zero years contribute,
// the result is domain.ErrNoData.
func (s *Service) Aggregate(ctx context.Context, day, month int, lat, lon float64, yearsBack int) (domain.Report, error) {
	date := domain.TargetDate{Day: day, Month: month}
	if err := date.Validate(); err != nil {
		return domain.Report{}, err
	}
	if lat < -90 || lat > 90 {
		return domain.Report{}, fmt.Errorf("%w: latitude %v out of range", domain.ErrInvalidParameter, lat)
	}
	if lon < -180 || lon > 180 {
		return domain.Report{}, fmt.Errorf("%w: longitude %v out of range", domain.ErrInvalidParameter, lon)
	}
	if yearsBack <= 0 {
		yearsBack = s.defaultYearsBack
	}

	start := s.clock.Now()
	window := domain.LookbackWindow{EndYear: start.Year(), YearsBack: yearsBack}
	idx := merra.NewIndex()

	var samples yearSamples
	for _, year := range window.Years() {
		if ctx.Err() != nil {
			return domain.Report{}, ctx.Err()
		}

		m := s.collectYear(ctx, idx, date, year, lat, lon)
		if !m.Any() {
			s.metrics.YearsSkipped.Inc()
			s.logger.Debug("year contributed no data", "year", year, "day", day, "month", month)
		}
		samples.add(m)
	}

	report := samples.report()
	s.metrics.LookupDuration.Observe(s.clock.Since(start).Seconds())

	if !report.HasData() {
		s.metrics.Lookups.WithLabelValues("no_data").Inc()
		return domain.Report{}, fmt.Errorf("%d/%02d at (%v, %v): %w", day, month, lat, lon, domain.ErrNoData)
	}
	s.metrics.Lookups.WithLabelValues("ok").Inc()
	s.logger.Info("lookup complete",
		"day", day, "month", month, "lat", lat, "lon", lon,
		"years_back", yearsBack, "years_checked", report.YearsChecked)

	s.publish(ctx, date, lat, lon, yearsBack, report)
	return report, nil
}

// collectYear gathers one year's metrics: temperature and precipitation from
// the daily-statistics file, wind from subset job output. Each path fails
// independently.
func (s *Service) collectYear(ctx context.Context, idx *merra.Index, date domain.TargetDate, year int, lat, lon float64) domain.DayMetrics {
	var m domain.DayMetrics

	url, err := s.resolver.Resolve(ctx, idx, year, date.Month, date.Day)
	if err != nil {
		s.logger.Debug("resolve skipped", "year", year, "error", err)
	} else if path, err := s.fetcher.Fetch(ctx, url); err != nil {
		s.logger.Warn("fetch skipped", "year", year, "error", err)
	} else if daily, err := s.extractor.ExtractFile(path, lat, lon,
		[]domain.Metric{domain.MetricTemperature, domain.MetricPrecipitation}); err != nil {
		s.logger.Warn("extract skipped", "year", year, "path", path, "error", err)
	} else {
		m.Merge(daily)
	}

	paths, err := s.wind.FetchYear(ctx, year, lat, lon)
	if err != nil {
		s.logger.Warn("wind subset skipped", "year", year, "error", err)
		return m
	}
	for _, path := range paths {
		windMetrics, err := s.extractor.ExtractFile(path, lat, lon, []domain.Metric{domain.MetricWind})
		if err != nil {
			s.logger.Warn("wind extract skipped", "year", year, "path", path, "error", err)
			continue
		}
		// A job can return several files for one year; keep the strongest reading.
		if windMetrics.WindSpeedMS != nil &&
			(m.WindSpeedMS == nil || *windMetrics.WindSpeedMS > *m.WindSpeedMS) {
			m.WindSpeedMS = windMetrics.WindSpeedMS
		}
	}
	return m
}

func (s *Service) publish(ctx context.Context, date domain.TargetDate, lat, lon float64, yearsBack int, report domain.Report) {
	if s.publisher == nil {
		return
	}
	rec := domain.ReportRecord{
		Date:        date,
		Lat:         lat,
		Lon:         lon,
		YearsBack:   yearsBack,
		Report:      report,
		GeneratedAt: s.clock.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, rec); err != nil {
		s.metrics.ReportsPublished.WithLabelValues("error").Inc()
		s.logger.Warn("report publish failed", "error", err)
		return
	}
	s.metrics.ReportsPublished.WithLabelValues("success").Inc()
}

// CheckReadiness satisfies the HTTP server's readiness hook. The service has
// no warm-up phase; readiness reflects construction having completed.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.resolver == nil || s.fetcher == nil || s.extractor == nil {
		return fmt.Errorf("service not fully wired")
	}
	return nil
}
