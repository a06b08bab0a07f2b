package earthdata

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"time"

	"github.com/pastcast/climatology/internal/domain"
	"github.com/pastcast/climatology/internal/observability"
)

// Fetcher downloads archive files through the cache store. Fetch is
// idempotent: a cached URL is returned without any network call.
type Fetcher struct {
	store      Store
	creds      Credentials
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewFetcher creates a Fetcher. Earthdata downloads bounce through the URS
// single sign-on host, so the client carries a cookie jar and re-applies
// basic auth across redirects (Go strips Authorization when the host
// changes).
func NewFetcher(store Store, creds Credentials, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	jar, _ := cookiejar.New(nil)
	return &Fetcher{
		store: store,
		creds: creds,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after %d redirects", len(via))
				}
				creds.Apply(req)
				return nil
			},
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch returns the local path for rawURL, downloading it on a cache miss.
// Failures are logged and returned; callers treat them as "no data for this
// year", never as fatal.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	name := path.Base(u.Path)

	if f.store.Exists(name) {
		f.metrics.CacheLookups.WithLabelValues("hit").Inc()
		f.logger.Debug("using cached file", "name", name)
		return f.store.PathFor(name), nil
	}
	f.metrics.CacheLookups.WithLabelValues("miss").Inc()

	start := time.Now()
	localPath, err := f.download(ctx, rawURL, name)
	if err != nil {
		f.metrics.Downloads.WithLabelValues("error").Inc()
		f.logger.Warn("download failed", "url", rawURL, "error", err)
		return "", err
	}

	f.metrics.Downloads.WithLabelValues("success").Inc()
	f.metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	f.logger.Info("downloaded", "name", name, "duration", time.Since(start))
	return localPath, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	f.creds.Apply(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &domain.TransportError{Op: "download", URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.TransportError{Op: "download", URL: rawURL, Status: resp.StatusCode}
	}

	return f.store.WriteOnce(name, resp.Body)
}
