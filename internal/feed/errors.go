package feed

import (
	"fmt"
	"time"

	"steinbockcal/internal/event"
	"steinbockcal/internal/fetch"
)

// NetworkError reports a failed fetch of the source document.
type NetworkError struct {
	URL    string
	Status int // upstream HTTP status, 0 if no response
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", fetch.RedactURL(e.URL), e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError reports a fetch that exceeded the configured bound.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Timeout <= 0 {
		return fmt.Sprintf("fetch %s: timed out", fetch.RedactURL(e.URL))
	}
	return fmt.Sprintf("fetch %s: timed out after %s", fetch.RedactURL(e.URL), e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ParseError reports a document without a usable table.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Reason {
		return fmt.Sprintf("parse: %s: %v", e.Reason, e.Err)
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// RowError reports a data row missing a required cell.
type RowError = event.RowError

// SerializationError wraps a failure to render the document.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
