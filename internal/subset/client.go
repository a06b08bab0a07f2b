// Package subset drives the GES DISC asynchronous subset API for variables
// that need server-side spatial cropping and diurnal aggregation before
// download — wind components in particular, which have no daily-statistics
// collection of their own.
//
// The protocol is a JSON-RPC-ish envelope over HTTP POST: submit a job,
// poll its status, page through result items once it succeeds, then download
// each item with the authenticated session.
package subset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/pastcast/climatology/internal/domain"
	"github.com/pastcast/climatology/internal/earthdata"
	"github.com/pastcast/climatology/internal/observability"
)

// Job statuses reported by the subset API.
const (
	StatusAccepted  = "Accepted"
	StatusRunning   = "Running"
	StatusSucceeded = "Succeeded"
	StatusFailed    = "Failed"
)

const (
	methodSubmit    = "subset"
	methodGetStatus = "GetStatus"
	methodGetResult = "GetResult"

	protocolVersion = "1.0"
	typeRequest     = "jsonwsp/request"
	typeFault       = "jsonwsp/fault"
)

// Options bundles tuning knobs for the client.
type Options struct {
	// PollInterval between status checks while a job is Accepted or Running.
	PollInterval time.Duration
	// MaxPollAttempts bounds the poll loop; exceeding it yields
	// domain.ErrJobTimeout. The upstream protocol itself has no bound.
	MaxPollAttempts int
	// PageSize for result pagination.
	PageSize int
	// Timeout for individual HTTP exchanges.
	Timeout time.Duration
}

// Client drives one subset job per (year, variable set, box).
type Client struct {
	endpoint        string
	datasetID       string
	variables       []string
	httpClient      *http.Client
	breaker         *gobreaker.CircuitBreaker
	clock           clockwork.Clock
	store           earthdata.Store
	creds           earthdata.Credentials
	logger          *slog.Logger
	metrics         *observability.Metrics
	pollInterval    time.Duration
	maxPollAttempts int
	pageSize        int
}

// NewClient creates a subset client for the hourly single-level diagnostics
// collection carrying the 10-meter wind components. The circuit breaker stops
// hammering the subset API while it is down; a year whose call is rejected by
// an open breaker is skipped like any other transport failure.
func NewClient(endpoint string, opts Options, store earthdata.Store, creds earthdata.Credentials, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "subset-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		endpoint:        endpoint,
		datasetID:       "M2I1NXASM_5.12.4",
		variables:       []string{"U10M", "V10M"},
		httpClient:      &http.Client{Timeout: opts.Timeout},
		breaker:         cb,
		clock:           clock,
		store:           store,
		creds:           creds,
		logger:          logger,
		metrics:         metrics,
		pollInterval:    opts.PollInterval,
		maxPollAttempts: opts.MaxPollAttempts,
		pageSize:        opts.PageSize,
	}
}

// FetchYear runs the full submit → poll → paginate → download cycle for one
// calendar year over a 1°×1° box around (lat, lon) and returns the local
// paths of the downloaded subset files. Every failure mode means "no wind
// data for this year"; the caller proceeds with remaining years.
func (c *Client) FetchYear(ctx context.Context, year int, lat, lon float64) ([]string, error) {
	job, err := c.submit(ctx, year, lat, lon)
	if err != nil {
		c.metrics.SubsetJobs.WithLabelValues("error").Inc()
		return nil, err
	}
	c.logger.Info("subset job submitted", "job_id", job.JobID, "year", year, "status", job.Status)

	status, err := c.awaitCompletion(ctx, job)
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrJobTimeout) {
			outcome = "timeout"
		}
		c.metrics.SubsetJobs.WithLabelValues(outcome).Inc()
		return nil, err
	}
	if status != StatusSucceeded {
		c.metrics.SubsetJobs.WithLabelValues("failed").Inc()
		return nil, &domain.JobError{JobID: job.JobID, Status: status}
	}

	items, err := c.collectResults(ctx, job.JobID)
	if err != nil {
		c.metrics.SubsetJobs.WithLabelValues("error").Inc()
		return nil, err
	}

	paths := c.downloadItems(ctx, job.JobID, items)
	if len(paths) == 0 {
		c.metrics.SubsetJobs.WithLabelValues("error").Inc()
		return nil, &domain.JobError{JobID: job.JobID, Err: fmt.Errorf("no downloadable result items")}
	}

	c.metrics.SubsetJobs.WithLabelValues("succeeded").Inc()
	return paths, nil
}

// submit posts the subset request: variable list, one calendar year, the
// bounding box, the interpolation grid, and daily diurnal aggregation.
func (c *Client) submit(ctx context.Context, year int, lat, lon float64) (*jobResult, error) {
	data := make([]subsetVariable, 0, len(c.variables))
	for _, v := range c.variables {
		data = append(data, subsetVariable{DatasetID: c.datasetID, Variable: v})
	}

	args := subsetArgs{
		Role:  "subset",
		Start: fmt.Sprintf("%04d-01-01T00:00:00", year),
		End:   fmt.Sprintf("%04d-12-31T23:59:59", year),
		// West, south, east, north.
		Box:                []float64{lon - 0.5, lat - 0.5, lon + 0.5, lat + 0.5},
		Crop:               true,
		Data:               data,
		Grid:               "0.5,0.625",
		DiurnalAggregation: "1",
	}

	result, err := c.call(ctx, methodSubmit, args)
	if err != nil {
		return nil, err
	}
	if result.JobID == "" {
		return nil, &domain.JobError{Err: fmt.Errorf("submit response carried no jobId")}
	}
	return result, nil
}

// awaitCompletion polls status on a fixed interval until the job leaves
// Accepted/Running, the attempt budget runs out, or ctx is done.
func (c *Client) awaitCompletion(ctx context.Context, job *jobResult) (string, error) {
	status := job.Status
	for attempt := 0; status == StatusAccepted || status == StatusRunning; attempt++ {
		if attempt >= c.maxPollAttempts {
			c.logger.Warn("subset job exceeded poll budget",
				"job_id", job.JobID, "attempts", attempt, "last_status", status)
			return "", fmt.Errorf("job %s still %s after %d polls: %w",
				job.JobID, status, attempt, domain.ErrJobTimeout)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-c.clock.After(c.pollInterval):
		}

		c.metrics.JobPolls.Inc()
		result, err := c.call(ctx, methodGetStatus, statusArgs{JobID: job.JobID})
		if err != nil {
			return "", err
		}
		status = result.Status
		c.logger.Debug("subset job status",
			"job_id", job.JobID, "status", status, "percent_done", result.PercentDone)
	}
	return status, nil
}

// collectResults pages through result items with a running start index until
// the accumulated count reaches totalResults.
func (c *Client) collectResults(ctx context.Context, jobID string) ([]resultItem, error) {
	var items []resultItem
	for {
		result, err := c.call(ctx, methodGetResult, resultArgs{
			JobID:      jobID,
			Count:      c.pageSize,
			StartIndex: len(items),
		})
		if err != nil {
			return nil, err
		}
		c.metrics.ResultPages.Inc()

		if len(result.Items) == 0 && len(items) < result.TotalResults {
			return nil, &domain.JobError{JobID: jobID,
				Err: fmt.Errorf("empty result page at index %d of %d", len(items), result.TotalResults)}
		}
		items = append(items, result.Items...)

		if len(items) >= result.TotalResults {
			return items, nil
		}
	}
}

// downloadItems fetches every item with a usable link into the cache under
// the item's label. Individual item failures are logged and skipped.
func (c *Client) downloadItems(ctx context.Context, jobID string, items []resultItem) []string {
	var paths []string
	for _, item := range items {
		if item.Link == "" || item.Label == "" {
			continue
		}
		path, err := c.downloadItem(ctx, item)
		if err != nil {
			c.logger.Warn("subset result download failed",
				"job_id", jobID, "label", item.Label, "error", err)
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func (c *Client) downloadItem(ctx context.Context, item resultItem) (string, error) {
	if c.store.Exists(item.Label) {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return c.store.PathFor(item.Label), nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Link, nil)
	if err != nil {
		return "", fmt.Errorf("build item request: %w", err)
	}
	c.creds.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.TransportError{Op: "download item", URL: item.Link, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.TransportError{Op: "download item", URL: item.Link, Status: resp.StatusCode}
	}
	return c.store.WriteOnce(item.Label, resp.Body)
}

// call performs one envelope exchange through the circuit breaker.
func (c *Client) call(ctx context.Context, method string, args any) (*jobResult, error) {
	payload, err := json.Marshal(rpcRequest{
		MethodName: method,
		Type:       typeRequest,
		Version:    protocolVersion,
		Args:       args,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	resp, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, method, payload)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*jobResult), nil
}

func (c *Client) doRequest(ctx context.Context, method string, payload []byte) (*jobResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.creds.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: method, URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransportError{Op: method, URL: c.endpoint, Status: resp.StatusCode}
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &domain.JobError{Err: fmt.Errorf("decode %s response: %w", method, err)}
	}
	if envelope.Type == typeFault {
		return nil, &domain.JobError{
			Err: fmt.Errorf("%s fault (code %d): %s", method, envelope.Result.Code, envelope.Result.Message),
		}
	}
	return &envelope.Result, nil
}
