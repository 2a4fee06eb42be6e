// Package maker implements the request/response protocol layer for a hub's
// Maker API.
//
// The Maker API is the hub's built-in REST interface, scoped to a specific
// authorized app instance and access token. This package owns URL resolution,
// token handling, and classification of responses into typed failures:
//
//   - ErrInvalidConfig: malformed constructor arguments
//   - ErrInvalidToken: the hub rejected the access token (HTTP 401)
//   - *RequestError: any other API-level failure, including in-body error
//     flags the hub returns inside a 200 response
//   - *ConnectionError: transport-level failures (hub unreachable)
//
// The client performs no retries; the hub is a resource-constrained embedded
// device and callers own any pacing decisions.
//
// Usage:
//
//	client, err := maker.New("10.0.1.99", "42", token)
//	if err != nil {
//	    return err
//	}
//	body, err := client.Request(ctx, "devices")
package maker
