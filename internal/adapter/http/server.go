// Package http exposes the climatology lookup over HTTP alongside health,
// readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pastcast/climatology/internal/domain"
	"github.com/pastcast/climatology/internal/observability"
)

var validate = validator.New()

// Aggregator computes a multi-year report for one calendar day and location.
type Aggregator interface {
	Aggregate(ctx context.Context, day, month int, lat, lon float64, yearsBack int) (domain.Report, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the lookup API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer builds the router and wraps it in an http.Server.
func NewServer(addr string, agg Aggregator, ready ReadinessChecker, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{logger: logger, metrics: metrics}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Method("GET", "/metrics", promhttp.Handler())
	r.Get("/v1/climatology", s.handleClimatology(agg))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // lookups fan out to remote archives
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// climatologyQuery holds the parsed lookup parameters. Years is optional and
// falls back to the service default when zero.
type climatologyQuery struct {
	Day   int     `validate:"required,min=1,max=31"`
	Month int     `validate:"required,min=1,max=12"`
	Lat   float64 `validate:"min=-90,max=90"`
	Lon   float64 `validate:"min=-180,max=180"`
	Years int     `validate:"min=0,max=100"`
}

func parseClimatologyQuery(r *http.Request) (climatologyQuery, error) {
	var q climatologyQuery

	vals := r.URL.Query()
	for _, p := range []struct {
		name     string
		dst      any
		required bool
	}{
		{"day", &q.Day, true},
		{"month", &q.Month, true},
		{"lat", &q.Lat, true},
		{"lon", &q.Lon, true},
		{"years", &q.Years, false},
	} {
		raw := vals.Get(p.name)
		if raw == "" {
			if p.required {
				return q, errors.New("missing parameters: provide day, month, lat, lon")
			}
			continue
		}
		var err error
		switch dst := p.dst.(type) {
		case *int:
			*dst, err = strconv.Atoi(raw)
		case *float64:
			*dst, err = strconv.ParseFloat(raw, 64)
		}
		if err != nil {
			return q, errors.New("malformed parameter " + p.name)
		}
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// climatologyResponse is the wire shape of a completed lookup.
type climatologyResponse struct {
	Day          int     `json:"day"`
	Month        int     `json:"month"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	YearsChecked int     `json:"years_checked"`

	AvgTemperatureC      *float64 `json:"avg_temperature_c"`
	PrecipitationFreqPct *int     `json:"precipitation_freq_pct"`
	PrecipitationLabel   string   `json:"precipitation_label,omitempty"`
	HeatFreqPct          *int     `json:"heat_freq_pct"`
	WindFreqPct          *int     `json:"wind_freq_pct"`
}

// snowLabelCutoffC is the average temperature below which the precipitation
// statistic is presented as snow/hail rather than rainfall. The underlying
// value and threshold are unchanged.
const snowLabelCutoffC = -5.0

func precipitationLabel(report domain.Report) string {
	if report.PrecipitationFreqPct == nil {
		return ""
	}
	if report.AvgTemperatureC != nil && *report.AvgTemperatureC < snowLabelCutoffC {
		return "snow/hail"
	}
	return "rainfall"
}

func (s *Server) handleClimatology(agg Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseClimatologyQuery(r)
		if err != nil {
			s.metrics.Lookups.WithLabelValues("bad_request").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		report, err := agg.Aggregate(r.Context(), q.Day, q.Month, q.Lat, q.Lon, q.Years)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInvalidParameter):
			s.metrics.Lookups.WithLabelValues("bad_request").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		case errors.Is(err, domain.ErrNoData):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no historical data for requested date and location",
			})
			return
		default:
			s.logger.Error("lookup failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "lookup failed",
			})
			return
		}

		writeJSON(w, http.StatusOK, climatologyResponse{
			Day:                  q.Day,
			Month:                q.Month,
			Lat:                  q.Lat,
			Lon:                  q.Lon,
			YearsChecked:         report.YearsChecked,
			AvgTemperatureC:      report.AvgTemperatureC,
			PrecipitationFreqPct: report.PrecipitationFreqPct,
			PrecipitationLabel:   precipitationLabel(report),
			HeatFreqPct:          report.HeatFreqPct,
			WindFreqPct:          report.WindFreqPct,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
