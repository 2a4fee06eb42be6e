package maker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates that the client was constructed with missing or
// malformed connection parameters. It is fatal at construction time and is
// never retried.
var ErrInvalidConfig = errors.New("invalid hub configuration")

// ErrInvalidToken indicates that the hub rejected the access token
// (HTTP 401). The token must be fixed in the Maker API app settings;
// the request is not retried.
var ErrInvalidToken = errors.New("invalid access token")

// RequestError represents any other API-level failure: a bad HTTP status, or
// an application-level error the hub reported inside a 200 response body.
type RequestError struct {
	Method string // HTTP method of the failed request
	URL    string // Request URL, without the access token
	Status int    // HTTP status code of the response
	Reason string // Status text or the in-body error detail
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s - [%d] %s", e.Method, e.URL, e.Status, e.Reason)
}

// ConnectionError indicates that the hub could not be reached at the
// transport level. The underlying network error is retained for diagnostics
// but callers are expected to treat this uniformly as "hub unreachable".
type ConnectionError struct {
	Host string
	Err  error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("hub %s unreachable: %v", e.Host, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsRequestError checks if an error is an API-level request failure
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// IsConnectionError checks if an error is a transport-level failure
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
