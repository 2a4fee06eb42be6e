package config

import (
	"sort"
	"time"
)

// Registry represents the entire user configuration file.
// It stores connection profiles for known hubs and application preferences.
type Registry struct {
	Version     int             `yaml:"version"`
	Hubs        map[string]*Hub `yaml:"hubs,omitempty"` // Keyed by user-chosen hub name
	Preferences *Preferences    `yaml:"preferences,omitempty"`
}

// Hub represents a saved connection profile for one hub.
// The Maker API access token is NEVER stored here; it is taken from a flag,
// the environment, or an interactive prompt each run.
type Hub struct {
	Host     string    `yaml:"host"`                // Hub hostname, address or URL
	AppID    string    `yaml:"app_id"`              // Maker API app instance ID
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last successful connection or discovery
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool   `yaml:"auto_discover"`         // Enable automatic mDNS discovery on startup
	DiscoverTimeout int    `yaml:"discover_timeout"`      // mDNS discovery timeout in seconds
	DefaultHub      string `yaml:"default_hub,omitempty"` // Hub name used when none is given
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Hubs:    make(map[string]*Hub),
		Preferences: &Preferences{
			AutoDiscover:    true,
			DiscoverTimeout: 10,
		},
	}
}

// GetHub retrieves a hub profile by name.
// Returns nil if the hub doesn't exist in the registry.
func (r *Registry) GetHub(name string) *Hub {
	return r.Hubs[name]
}

// EnsureHub ensures a hub entry exists in the registry.
// If the hub doesn't exist, creates a new empty entry.
// Returns the hub entry (existing or newly created).
func (r *Registry) EnsureHub(name string) *Hub {
	if r.Hubs == nil {
		r.Hubs = make(map[string]*Hub)
	}

	if hub, exists := r.Hubs[name]; exists {
		return hub
	}

	hub := &Hub{}
	r.Hubs[name] = hub
	return hub
}

// SetHub records or updates the connection details for a hub.
func (r *Registry) SetHub(name, host, appID string) *Hub {
	hub := r.EnsureHub(name)
	hub.Host = host
	hub.AppID = appID
	return hub
}

// TouchHub updates the last seen timestamp and host for a hub.
func (r *Registry) TouchHub(name, host string) {
	hub := r.EnsureHub(name)
	hub.Host = host
	hub.LastSeen = time.Now()
}

// SetHubNickname sets a user-friendly nickname for a hub.
func (r *Registry) SetHubNickname(name, nickname string) {
	r.EnsureHub(name).Nickname = nickname
}

// RemoveHub deletes a hub profile. Clears the default when it pointed at
// the removed hub.
func (r *Registry) RemoveHub(name string) {
	delete(r.Hubs, name)
	if r.Preferences != nil && r.Preferences.DefaultHub == name {
		r.Preferences.DefaultHub = ""
	}
}

// HubNames returns the names of all saved hubs in sorted order.
func (r *Registry) HubNames() []string {
	names := make([]string, 0, len(r.Hubs))
	for name := range r.Hubs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultHub resolves the hub to use when none is named: the configured
// default, or the only saved hub when exactly one exists. Returns "" when
// no hub can be resolved.
func (r *Registry) DefaultHub() string {
	if r.Preferences != nil && r.Preferences.DefaultHub != "" {
		if _, ok := r.Hubs[r.Preferences.DefaultHub]; ok {
			return r.Preferences.DefaultHub
		}
	}
	if len(r.Hubs) == 1 {
		for name := range r.Hubs {
			return name
		}
	}
	return ""
}
