package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkerr/hubmaker/internal/device"
	"github.com/mkerr/hubmaker/internal/logging"
)

// shutdownTimeout bounds how long Stop waits for in-flight webhook POSTs.
const shutdownTimeout = 5 * time.Second

// envelope is the webhook POST body: the hub wraps each event in a
// "content" object.
type envelope struct {
	Content device.Event `json:"content"`
}

// Server receives the hub's webhook POSTs and hands each decoded event to
// the configured handler. It owns its bound address between Start and Stop
// and releases it deterministically on Stop, even after a failed Start.
type Server struct {
	addr    string
	port    int
	hubHost string
	handler func(device.Event)

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	url      string
}

// New creates a webhook server that will bind addr:port (port 0 = random
// open port). hubHost is the hub this server will advertise its callback
// URL to; it is used to pick the right local interface address when
// listening on all interfaces.
func New(addr string, port int, hubHost string, handler func(device.Event)) *Server {
	return &Server{
		addr:    addr,
		port:    port,
		hubHost: hubHost,
		handler: handler,
	}
}

// Start binds the listen address and begins serving webhook POSTs in the
// background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", net.JoinHostPort(s.addr, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("binding webhook listener: %w", err)
	}
	s.listener = listener

	boundPort := listener.Addr().(*net.TCPAddr).Port
	s.url = fmt.Sprintf("http://%s", net.JoinHostPort(s.advertiseAddr(), strconv.Itoa(boundPort)))

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleEvent)
	s.httpSrv = &http.Server{Handler: mux}

	go func(srv *http.Server, ln net.Listener) {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Error("Webhook server stopped unexpectedly", zap.Error(err))
		}
	}(s.httpSrv, listener)

	logging.Info("Webhook server listening", zap.String("url", s.url))
	return nil
}

// Stop gracefully shuts the server down, waiting briefly for in-flight
// requests, and releases the bound address. Safe to call when the server
// never started.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv == nil {
		// Start may have bound the listener but failed before serving.
		if s.listener != nil {
			err := s.listener.Close()
			s.listener = nil
			return err
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpSrv.Shutdown(ctx)
	s.httpSrv = nil
	s.listener = nil
	return err
}

// URL returns the callback URL to register with the hub. Only valid after
// Start has succeeded.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// handleEvent decodes one webhook POST and hands the event to the handler.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		logging.Warn("Discarding malformed webhook payload",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	s.handler(env.Content)
	w.Write([]byte("OK"))
}

// advertiseAddr picks the address to put in the callback URL. A listen
// address on all interfaces is useless to the hub, so in that case the
// local interface that routes to the hub is used instead.
func (s *Server) advertiseAddr() string {
	if s.addr != "" && s.addr != "0.0.0.0" && s.addr != "::" {
		return s.addr
	}

	host := s.hubHost
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "80")
	}

	// A UDP "dial" performs no handshake; it only resolves the route.
	conn, err := net.Dial("udp", host)
	if err != nil {
		logging.Warn("Cannot determine outbound address, advertising loopback",
			zap.String("hub_host", s.hubHost),
			zap.Error(err),
		)
		return "127.0.0.1"
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
