package maker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkerr/hubmaker/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout for API calls
	DefaultTimeout = 10 * time.Second

	// apiPathPrefix is the path under which the Maker API app is mounted
	apiPathPrefix = "/apps/api/"
)

// Client issues authenticated HTTP requests to a hub's Maker API instance.
//
// Every request carries the access token as an access_token query parameter;
// the Maker API has no other auth mechanism. A single failed attempt is a
// single reported failure - no retries are performed at this layer, because
// the hub is a resource-constrained embedded device that degrades under
// request bursts.
type Client struct {
	// Scheme is the URL scheme used to reach the hub ("http" or "https")
	Scheme string

	// Host is the hub's host[:port] (e.g., "10.0.1.99")
	Host string

	// AppID is the ID of the Maker API app instance on the hub
	AppID string

	// BaseURL is the resolved API base URL
	// (e.g., "http://10.0.1.99/apps/api/42")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	token string
}

// New creates a Maker API client for the given hub.
//
// host may be a bare hostname/address (e.g., "10.0.1.99") or a full URL
// (e.g., "https://hubitat.local"); the scheme defaults to http when absent.
// Returns ErrInvalidConfig if host, appID or accessToken is empty or the
// host cannot be parsed.
func New(host, appID, accessToken string) (*Client, error) {
	if host == "" || appID == "" || accessToken == "" {
		return nil, fmt.Errorf("%w: host, app ID and access token are required", ErrInvalidConfig)
	}

	scheme, hostport, err := splitHost(host)
	if err != nil {
		return nil, err
	}

	return &Client{
		Scheme:     scheme,
		Host:       hostport,
		AppID:      appID,
		BaseURL:    fmt.Sprintf("%s://%s%s%s", scheme, hostport, apiPathPrefix, appID),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		token:      accessToken,
	}, nil
}

// splitHost resolves a host argument into a scheme and host[:port] pair.
func splitHost(host string) (scheme, hostport string, err error) {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: cannot parse host %q", ErrInvalidConfig, host)
	}

	scheme = u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme, u.Host, nil
}

// HubURL returns a URL on the hub itself (outside the Maker API app),
// such as the /hub/edit admin page.
func (c *Client) HubURL(path string) string {
	return fmt.Sprintf("%s://%s%s", c.Scheme, c.Host, path)
}

// SetTimeout changes the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Request performs a Maker API request against the given path (relative to
// the API base URL, e.g. "devices" or "devices/1922/on") and returns the
// decoded JSON body.
//
// Failure classification:
//   - HTTP 401: ErrInvalidToken
//   - any other status >= 400: *RequestError
//   - status < 400 with a truthy "error" field in the JSON body:
//     *RequestError (the hub reports some application errors inside a 200)
//   - transport failures: *ConnectionError
func (c *Client) Request(ctx context.Context, path string) (json.RawMessage, error) {
	reqURL := c.BaseURL + "/" + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}

	q := req.URL.Query()
	q.Set("access_token", c.token)
	req.URL.RawQuery = q.Encode()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Host: c.Host, Err: err}
	}
	defer resp.Body.Close()

	logging.LogRequest(http.MethodGet, reqURL, resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode >= 400 {
		return nil, &RequestError{
			Method: http.MethodGet,
			URL:    reqURL,
			Status: resp.StatusCode,
			Reason: http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Host: c.Host, Err: err}
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &RequestError{
			Method: http.MethodGet,
			URL:    reqURL,
			Status: resp.StatusCode,
			Reason: fmt.Sprintf("invalid JSON response: %v", err),
		}
	}

	// The hub can report application-level errors inside a 200 response,
	// e.g. {"error": true, "type": "AccessDenied", ...}.
	if reason, failed := bodyError(raw); failed {
		return nil, &RequestError{
			Method: http.MethodGet,
			URL:    reqURL,
			Status: resp.StatusCode,
			Reason: reason,
		}
	}

	return raw, nil
}

// bodyError reports whether a decoded JSON body carries a truthy "error"
// field, returning a human-readable reason when it does.
func bodyError(raw json.RawMessage) (string, bool) {
	var probe struct {
		Error   any    `json:"error"`
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		// Not a JSON object (e.g. a device list array) - no error field.
		return "", false
	}

	if !truthy(probe.Error) {
		return "", false
	}

	reason := "hub reported an error"
	if probe.Type != "" {
		reason = probe.Type
	}
	if probe.Message != "" {
		reason += ": " + probe.Message
	}
	return reason, true
}

// truthy applies JSON truthiness to a decoded value: false, 0, "", and null
// are falsy, everything else is truthy.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}
