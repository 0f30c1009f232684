package httpclient_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulegrab/rulegrab/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		url           string
		message       string
		expectedError string
	}{
		{
			name:          "create HTTPError with all fields",
			statusCode:    404,
			url:           "http://example.com",
			message:       "404 Not Found",
			expectedError: "HTTP 404 for URL http://example.com: 404 Not Found",
		},
		{
			name:          "format error message correctly for 500",
			statusCode:    500,
			url:           "https://raw.githubusercontent.com/org/repo/main/rule.yar",
			message:       "Internal Server Error",
			expectedError: "HTTP 500 for URL https://raw.githubusercontent.com/org/repo/main/rule.yar: Internal Server Error",
		},
		{
			name:          "handle empty message",
			statusCode:    403,
			url:           "http://example.com",
			message:       "",
			expectedError: "HTTP 403 for URL http://example.com: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := httpclient.NewHTTPError(tt.statusCode, tt.url, tt.message)
			require.Error(t, err)
			assert.Equal(t, tt.expectedError, err.Error())

			var httpErr *httpclient.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.statusCode, httpErr.StatusCode)
			assert.Equal(t, tt.url, httpErr.URL)
			assert.Equal(t, tt.message, httpErr.Message)
		})
	}
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	err := &httpclient.TransportError{URL: "https://example.com/a.rules", Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "request to https://example.com/a.rules failed: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadBodyError(t *testing.T) {
	t.Parallel()

	err := &httpclient.ReadBodyError{URL: "https://example.com/a.rules", Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "failed to read response body from https://example.com/a.rules: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
