package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// climatology lookup path.
type Metrics struct {
	Lookups        *prometheus.CounterVec // labels: outcome={ok,no_data,bad_request}
	LookupDuration prometheus.Histogram

	// Resolver metrics.
	ListingRequests *prometheus.CounterVec // labels: outcome={success,error}

	// Fetcher metrics.
	CacheLookups     *prometheus.CounterVec // labels: result={hit,miss}
	Downloads        *prometheus.CounterVec // labels: outcome={success,error}
	DownloadDuration prometheus.Histogram

	// Subset job metrics.
	SubsetJobs  *prometheus.CounterVec // labels: outcome={succeeded,failed,timeout,error}
	JobPolls    prometheus.Counter
	ResultPages prometheus.Counter

	// Aggregation metrics.
	YearsSkipped     prometheus.Counter
	ReportsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all lookup metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Lookups,
		m.LookupDuration,
		m.ListingRequests,
		m.CacheLookups,
		m.Downloads,
		m.DownloadDuration,
		m.SubsetJobs,
		m.JobPolls,
		m.ResultPages,
		m.YearsSkipped,
		m.ReportsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "lookups_total",
			Help:      "Climatology lookups by outcome.",
		}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climatology",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of a complete multi-year lookup.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		ListingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "listing_requests_total",
			Help:      "Remote directory listing fetches by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "cache_lookups_total",
			Help:      "File cache lookups by result.",
		}, []string{"result"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "downloads_total",
			Help:      "Grid file downloads by outcome.",
		}, []string{"outcome"}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climatology",
			Name:      "download_duration_seconds",
			Help:      "Duration of grid file downloads.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		SubsetJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "subset_jobs_total",
			Help:      "Subset jobs by terminal outcome.",
		}, []string{"outcome"}),
		JobPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "job_polls_total",
			Help:      "Status polls issued against the subset API.",
		}),
		ResultPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "result_pages_total",
			Help:      "Result pages fetched from the subset API.",
		}),
		YearsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "years_skipped_total",
			Help:      "Lookback years that contributed no data at all.",
		}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatology",
			Name:      "reports_published_total",
			Help:      "Reports published to the sink topic by outcome.",
		}, []string{"outcome"}),
	}
}
