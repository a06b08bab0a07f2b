package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the soft-failure taxonomy. Everything except
// ErrInvalidParameter degrades to "no data for this year/metric"; only
// parameter errors are fatal to a request.
var (
	// ErrNotFound means no remote file exists for the requested date.
	ErrNotFound = errors.New("no file for requested date")

	// ErrMissingVariable means the file was readable but lacks a requested field.
	ErrMissingVariable = errors.New("variable not present in dataset")

	// ErrJobTimeout means a subset job did not reach a terminal status within
	// the configured poll budget.
	ErrJobTimeout = errors.New("subset job timed out")

	// ErrNoData means zero years contributed any data point.
	ErrNoData = errors.New("no data available")

	// ErrInvalidParameter marks malformed request input, surfaced as a client
	// error before any network work begins.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// TransportError wraps a failed HTTP exchange: timeout, connection error, or
// non-success status. Status is zero when the request never completed.
type TransportError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// JobError wraps a subset job that reached a Failed terminal status or
// returned a malformed response.
type JobError struct {
	JobID  string
	Status string
	Err    error
}

func (e *JobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("subset job %s: %v", e.JobID, e.Err)
	}
	return fmt.Sprintf("subset job %s: terminal status %s", e.JobID, e.Status)
}

func (e *JobError) Unwrap() error { return e.Err }
