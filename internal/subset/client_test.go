package subset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pastcast/climatology/internal/domain"
	"github.com/pastcast/climatology/internal/earthdata"
	"github.com/pastcast/climatology/internal/observability"
)

// fakeJobAPI scripts the subset endpoint: a submit response, a sequence of
// status responses (the last one repeating forever), paginated results, and
// file downloads under /data/.
type fakeJobAPI struct {
	submitStatus string
	statuses     []string
	totalResults int
	faultOn      string // methodname to answer with a jsonwsp/fault

	polls       atomic.Int64
	resultCalls atomic.Int64
}

func (f *fakeJobAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "subset-bytes:%s", r.URL.Path)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.MethodName == f.faultOn {
			writeEnvelope(t, w, typeFault, jobResult{Message: "scripted fault"})
			return
		}

		switch req.MethodName {
		case methodSubmit:
			writeEnvelope(t, w, "jsonwsp/response", jobResult{JobID: "job-1", Status: f.submitStatus})
		case methodGetStatus:
			n := int(f.polls.Add(1))
			idx := n - 1
			if idx >= len(f.statuses) {
				idx = len(f.statuses) - 1
			}
			writeEnvelope(t, w, "jsonwsp/response", jobResult{JobID: "job-1", Status: f.statuses[idx]})
		case methodGetResult:
			f.resultCalls.Add(1)
			var args resultArgs
			raw, err := json.Marshal(req.Args)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &args))

			items := make([]resultItem, 0, args.Count)
			for i := args.StartIndex; i < f.totalResults && len(items) < args.Count; i++ {
				label := fmt.Sprintf("item-%03d.nc4", i)
				items = append(items, resultItem{
					Label: label,
					Link:  "http://" + r.Host + "/data/" + label,
				})
			}
			writeEnvelope(t, w, "jsonwsp/response", jobResult{
				JobID:        "job-1",
				Items:        items,
				ItemsPerPage: args.Count,
				TotalResults: f.totalResults,
				StartIndex:   args.StartIndex,
			})
		default:
			t.Errorf("unexpected methodname %q", req.MethodName)
		}
	})
	return mux
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, typ string, result jobResult) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(rpcResponse{Type: typ, Result: result}))
}

func newTestClient(t *testing.T, endpoint string, clock clockwork.Clock, maxPolls int) *Client {
	t.Helper()
	store, err := earthdata.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	return NewClient(endpoint, Options{
		PollInterval:    5 * time.Second,
		MaxPollAttempts: maxPolls,
		PageSize:        20,
		Timeout:         5 * time.Second,
	}, store, earthdata.Credentials{Username: "u", Password: "p"},
		clock,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
	)
}

// advanceWhileBlocked steps the fake clock past each poll sleep until ctx is
// cancelled, so tests drive the 5-second interval without real waiting.
func advanceWhileBlocked(ctx context.Context, fc *clockwork.FakeClock, interval time.Duration) {
	for {
		if err := fc.BlockUntilContext(ctx, 1); err != nil {
			return
		}
		fc.Advance(interval)
	}
}

func TestClient_FetchYear_PollsUntilSucceeded(t *testing.T) {
	api := &fakeJobAPI{
		submitStatus: StatusAccepted,
		statuses:     []string{StatusRunning, StatusRunning, StatusSucceeded},
		totalResults: 2,
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	fc := clockwork.NewFakeClock()
	c := newTestClient(t, srv.URL, fc, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go advanceWhileBlocked(ctx, fc, 5*time.Second)

	paths, err := c.FetchYear(ctx, 2010, 30.0, -97.0)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, int64(3), api.polls.Load())

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "item-000.nc4")
}

func TestClient_FetchYear_JobTimeout(t *testing.T) {
	api := &fakeJobAPI{
		submitStatus: StatusAccepted,
		statuses:     []string{StatusRunning}, // never leaves Running
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	fc := clockwork.NewFakeClock()
	c := newTestClient(t, srv.URL, fc, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go advanceWhileBlocked(ctx, fc, 5*time.Second)

	_, err := c.FetchYear(ctx, 2010, 30.0, -97.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrJobTimeout)
	assert.Equal(t, int64(4), api.polls.Load(), "poll count must match the configured budget")
}

func TestClient_FetchYear_FailedTerminalStatus(t *testing.T) {
	api := &fakeJobAPI{
		submitStatus: StatusAccepted,
		statuses:     []string{StatusRunning, StatusFailed},
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	fc := clockwork.NewFakeClock()
	c := newTestClient(t, srv.URL, fc, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go advanceWhileBlocked(ctx, fc, 5*time.Second)

	_, err := c.FetchYear(ctx, 2010, 30.0, -97.0)
	require.Error(t, err)

	var je *domain.JobError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, StatusFailed, je.Status)
	assert.Equal(t, "job-1", je.JobID)
}

func TestClient_FetchYear_SubmitFault(t *testing.T) {
	api := &fakeJobAPI{faultOn: methodSubmit}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, clockwork.NewFakeClock(), 100)

	_, err := c.FetchYear(context.Background(), 2010, 30.0, -97.0)
	require.Error(t, err)

	var je *domain.JobError
	require.ErrorAs(t, err, &je)
	assert.Contains(t, je.Error(), "scripted fault")
}

func TestClient_FetchYear_EndpointUnreachable(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", clockwork.NewFakeClock(), 100)

	_, err := c.FetchYear(context.Background(), 2010, 30.0, -97.0)
	require.Error(t, err)

	var te *domain.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestClient_CollectResults_PaginationTerminates(t *testing.T) {
	api := &fakeJobAPI{
		submitStatus: StatusSucceeded,
		totalResults: 45,
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, clockwork.NewFakeClock(), 100)

	items, err := c.collectResults(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Len(t, items, 45)
	assert.Equal(t, int64(3), api.resultCalls.Load(), "45 items at 20 per page is exactly 3 fetches")
	assert.Equal(t, "item-044.nc4", items[44].Label)
}

func TestClient_FetchYear_SubmitSucceededSkipsPolling(t *testing.T) {
	api := &fakeJobAPI{
		submitStatus: StatusSucceeded,
		totalResults: 1,
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, clockwork.NewFakeClock(), 100)

	paths, err := c.FetchYear(context.Background(), 2010, 30.0, -97.0)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	assert.Zero(t, api.polls.Load())
}

func TestClient_Submit_RequestShape(t *testing.T) {
	var captured subsetArgs
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw, err := json.Marshal(req.Args)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &captured))

		assert.Equal(t, methodSubmit, req.MethodName)
		assert.Equal(t, typeRequest, req.Type)
		assert.Equal(t, protocolVersion, req.Version)

		writeEnvelope(t, w, "jsonwsp/response", jobResult{JobID: "job-9", Status: StatusFailed})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, clockwork.NewFakeClock(), 100)

	_, err := c.FetchYear(context.Background(), 1998, 30.25, -97.75)
	require.Error(t, err) // Failed status; only the request shape matters here

	assert.Equal(t, "1998-01-01T00:00:00", captured.Start)
	assert.Equal(t, "1998-12-31T23:59:59", captured.End)
	require.Len(t, captured.Box, 4)
	assert.InDelta(t, -98.25, captured.Box[0], 1e-9) // west
	assert.InDelta(t, 29.75, captured.Box[1], 1e-9)  // south
	assert.InDelta(t, -97.25, captured.Box[2], 1e-9) // east
	assert.InDelta(t, 30.75, captured.Box[3], 1e-9)  // north
	require.Len(t, captured.Data, 2)
	assert.Equal(t, "U10M", captured.Data[0].Variable)
	assert.Equal(t, "V10M", captured.Data[1].Variable)
	assert.Equal(t, "1", captured.DiurnalAggregation)
}
