package eventsocket

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mkerr/hubmaker/internal/device"
	"github.com/mkerr/hubmaker/internal/logging"
	"github.com/mkerr/hubmaker/internal/maker"
)

// endpoint is the hub's raw event feed. Unlike the Maker API it is not
// scoped to an app and takes no access token.
const endpoint = "/eventsocket"

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Client consumes the hub's event socket: a websocket feed of every event
// the hub generates, sent as flat JSON objects. It satisfies the same
// lifecycle contract as the webhook server, so a hub can be wired to either
// transport.
//
// The feed is read-only; the hub ignores anything written to it.
type Client struct {
	host    string
	url     string
	handler func(device.Event)

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

// New creates a client for the event socket on the given hub. host may be a
// bare hostname/address or a full URL; http maps to ws and https to wss.
func New(host string, handler func(device.Event)) (*Client, error) {
	socketURL, err := socketURL(host)
	if err != nil {
		return nil, err
	}

	return &Client{
		host:    host,
		url:     socketURL,
		handler: handler,
	}, nil
}

// socketURL normalizes a hub host into the event socket URL.
func socketURL(host string) (string, error) {
	if host == "" {
		return "", maker.ErrInvalidConfig
	}
	if !strings.Contains(host, "://") {
		host = "ws://" + host
	}

	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return "", maker.ErrInvalidConfig
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", maker.ErrInvalidConfig
	}

	u.Path = endpoint
	u.RawQuery = ""
	return u.String(), nil
}

// Start dials the event socket and begins delivering events in the
// background. A lost connection is redialed with backoff until Stop.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return &maker.ConnectionError{Host: c.host, Err: err}
	}

	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)

	logging.Info("Connected to hub event socket", zap.String("url", c.url))
	return nil
}

// Stop closes the socket and halts redial attempts. Safe to call when the
// client never started.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		return nil
	}

	close(c.done)
	c.done = nil

	err := c.conn.Close()
	c.conn = nil
	return err
}

// URL returns "". The event socket is a pull transport: the hub needs no
// callback URL registered for it.
func (c *Client) URL() string { return "" }

// readLoop delivers decoded events until the connection dies or Stop is
// called, redialing on failure.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}

			conn = c.redial(done)
			if conn == nil {
				return
			}
			continue
		}

		var event device.Event
		if err := json.Unmarshal(data, &event); err != nil {
			logging.Warn("Discarding undecodable socket event",
				zap.ByteString("payload", data),
				zap.Error(err),
			)
			continue
		}

		c.handler(event)
	}
}

// redial reconnects with exponential backoff, giving up only when Stop
// closes done. Returns the new connection, or nil when stopped.
func (c *Client) redial(done chan struct{}) *websocket.Conn {
	backoff := initialBackoff

	for {
		logging.Warn("Event socket disconnected, redialing",
			zap.String("url", c.url),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-done:
			return nil
		case <-time.After(backoff):
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err == nil {
			c.mu.Lock()
			// Stop may have raced the redial; close and bail if so.
			if c.done != done {
				c.mu.Unlock()
				conn.Close()
				return nil
			}
			c.conn = conn
			c.mu.Unlock()

			logging.Info("Event socket reconnected", zap.String("url", c.url))
			return conn
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
