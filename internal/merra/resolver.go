// Package merra discovers MERRA-2 daily-statistics files in the GES DISC
// archive. File names embed a production-stream prefix that varies by year,
// so each (year, month) directory listing is scanned for the wanted date tag
// rather than constructing names up front.
package merra

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/pastcast/climatology/internal/domain"
	"github.com/pastcast/climatology/internal/observability"
)

// filePattern matches daily statD files in a listing body, e.g.
// MERRA2_400.statD_2d_slv_Nx.20100704.nc4. The date tag is the only capture.
var filePattern = regexp.MustCompile(`MERRA2_\d{3}\.statD_2d_slv_Nx\.(\d{8})\.nc4`)

// Index caches directory listings for the lifetime of one lookup, keyed by
// (year, month). It is owned by the request and never shared across requests,
// so no locking is needed; the "zero files" result of a failed listing is
// cached too, keeping to at most one listing fetch per month per request.
type Index struct {
	months map[string][]string
}

// NewIndex creates an empty per-request listing cache.
func NewIndex() *Index {
	return &Index{months: make(map[string][]string)}
}

func (ix *Index) lookup(year, month int) ([]string, bool) {
	names, ok := ix.months[monthKey(year, month)]
	return names, ok
}

func (ix *Index) store(year, month int, names []string) {
	ix.months[monthKey(year, month)] = names
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Resolver finds the archive URL for a given calendar date.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewResolver creates a Resolver against the given collection base URL
// (e.g. .../MERRA2/M2SDNXSLV.5.12.4).
func NewResolver(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve returns the download URL for the file whose date tag matches the
// given date, consulting idx before fetching the month's listing. A failed
// listing fetch is a soft failure: the month is recorded as empty and the
// date resolves to domain.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, idx *Index, year, month, day int) (string, error) {
	names, ok := idx.lookup(year, month)
	if !ok {
		names = r.listMonth(ctx, year, month)
		idx.store(year, month, names)
	}

	tag := domain.TargetDate{Day: day, Month: month}.Tag(year)
	for _, name := range names {
		m := filePattern.FindStringSubmatch(name)
		if m != nil && m[1] == tag {
			return fmt.Sprintf("%s/%s", r.monthURL(year, month), name), nil
		}
	}
	return "", fmt.Errorf("resolve %s: %w", tag, domain.ErrNotFound)
}

// listMonth fetches and scans one month's directory listing. Errors degrade
// to an empty file list.
func (r *Resolver) listMonth(ctx context.Context, year, month int) []string {
	listingURL := r.monthURL(year, month) + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		r.logger.Warn("build listing request failed", "url", listingURL, "error", err)
		r.metrics.ListingRequests.WithLabelValues("error").Inc()
		return nil
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("listing fetch failed, treating month as empty",
			"year", year, "month", month, "error", err)
		r.metrics.ListingRequests.WithLabelValues("error").Inc()
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("listing fetch returned non-success status, treating month as empty",
			"year", year, "month", month, "status", resp.StatusCode)
		r.metrics.ListingRequests.WithLabelValues("error").Inc()
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.Warn("listing body read failed, treating month as empty",
			"year", year, "month", month, "error", err)
		r.metrics.ListingRequests.WithLabelValues("error").Inc()
		return nil
	}

	r.metrics.ListingRequests.WithLabelValues("success").Inc()
	return scanListing(body)
}

func (r *Resolver) monthURL(year, month int) string {
	return fmt.Sprintf("%s/%04d/%02d", r.baseURL, year, month)
}

// scanListing extracts file names from a listing body. Index pages mention
// each file several times (href, link text, icon alt), so matches are
// deduplicated preserving first-seen order.
func scanListing(body []byte) []string {
	matches := filePattern.FindAll(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := string(m)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
