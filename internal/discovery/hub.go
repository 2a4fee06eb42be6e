package discovery

import (
	"fmt"
	"time"
)

// Hub represents a Hubitat Elevation hub discovered on the local network.
type Hub struct {
	// Name is the hub's advertised name, the hostname without the
	// .local suffix (e.g., "hubitat" or "hubitat-c8")
	Name string

	// Hostname is the mDNS hostname (e.g., "hubitat-c8.local.")
	Hostname string

	// IP is the hub's address, preferring IPv4
	IP string

	// Port is the hub's web UI port (typically 80)
	Port int

	// Metadata contains additional mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the hub was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the hub
func (h *Hub) String() string {
	return fmt.Sprintf("Hubitat hub %s at %s:%d", h.Name, h.IP, h.Port)
}

// BaseURL returns the HTTP base URL for the hub
func (h *Hub) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", h.IP, h.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (h *Hub) GetMetadata(key string) string {
	if h.Metadata == nil {
		return ""
	}
	return h.Metadata[key]
}
