package sources

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFiltered means the source, or every file in it, was rejected by the filters
	ErrFiltered = errors.New("filtered out")

	// ErrOverwriteSkipped means the destination existed and was kept
	ErrOverwriteSkipped = errors.New("existing file kept")
)

// CloneError is returned when a repository could not be cloned
type CloneError struct {
	URL string
	Err error
}

// Error returns the error message
func (e *CloneError) Error() string {
	return fmt.Sprintf("failed to clone %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *CloneError) Unwrap() error {
	return e.Err
}

// CloneTimeoutError is returned when a clone did not finish within the configured timeout
type CloneTimeoutError struct {
	URL     string
	Timeout time.Duration
}

// Error returns the error message
func (e *CloneTimeoutError) Error() string {
	return fmt.Sprintf("clone of %s did not finish within %s", e.URL, e.Timeout)
}

// InvalidSourceError is returned when a source URL cannot be used
type InvalidSourceError struct {
	URL    string
	Reason string
}

// Error returns the error message
func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid source %q: %s", e.URL, e.Reason)
}
