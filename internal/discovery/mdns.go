package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type hubs advertise under.
	// Hubitat hubs register their web UI as an "_http._tcp" service.
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for hub discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the hub's default web UI port
	DefaultPort = 80
)

// hostPattern matches hub hostnames: "hubitat.local" out of the box, or a
// renamed variant like "hubitat-c8.local". The captured group is the
// advertised name.
var hostPattern = regexp.MustCompile(`(?i)^(hubitat[0-9a-z-]*)\.local\.?$`)

// Scanner handles mDNS hub discovery
type Scanner struct {
	// Timeout is the maximum time to wait for hub discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all hubs on the local network, collecting answers until
// the scanner's timeout elapses or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) ([]*Hub, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("creating mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	var hubs []*Hub

	// The resolver closes entries when ctx expires; collect until then so
	// the slice is never read while still being appended to.
	go func() {
		defer close(done)
		for entry := range entries {
			if hub := s.parseServiceEntry(entry); hub != nil {
				hubs = append(hubs, hub)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("browsing for mDNS services: %w", err)
	}

	<-done
	return hubs, nil
}

// Find waits for a hub with the given advertised name to appear. Returns an
// error when no such hub answers within the scanner's timeout.
func (s *Scanner) Find(ctx context.Context, name string) (*Hub, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("creating mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Hub, 1)

	go func() {
		for entry := range entries {
			hub := s.parseServiceEntry(entry)
			if hub != nil && strings.EqualFold(hub.Name, name) {
				found <- hub
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("browsing for mDNS services: %w", err)
	}

	select {
	case hub := <-found:
		return hub, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("hub %q not found within timeout", name)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Hub.
// Returns nil if the entry is not a Hubitat hub.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Hub {
	hostname := entry.HostName
	if hostname == "" {
		return nil
	}

	matches := hostPattern.FindStringSubmatch(hostname)
	if len(matches) < 2 {
		return nil
	}
	name := strings.ToLower(matches[1])

	// Prefer IPv4; the hub's web UI listens on both.
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format.
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Hub{
		Name:         name,
		Hostname:     hostname,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForHubs is a convenience function to scan for hubs with a custom timeout
func ScanForHubs(ctx context.Context, timeout time.Duration) ([]*Hub, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}

// FindHub searches for a specific hub by advertised name with default timeout
func FindHub(ctx context.Context, name string) (*Hub, error) {
	return NewScanner().Find(ctx, name)
}
