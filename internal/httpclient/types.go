package httpclient

import "fmt"

// HTTPError represents a non-2xx response
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// TransportError is returned when the request could not be built or no
// response was received
type TransportError struct {
	URL string
	Err error
}

// Error returns the error message
func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ReadBodyError is returned when a 2xx response body could not be read in full
type ReadBodyError struct {
	URL string
	Err error
}

// Error returns the error message
func (e *ReadBodyError) Error() string {
	return fmt.Sprintf("failed to read response body from %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *ReadBodyError) Unwrap() error {
	return e.Err
}
