package device

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/mkerr/hubmaker/internal/logging"
)

// API is the request surface the registry needs from the Maker API client.
type API interface {
	Request(ctx context.Context, path string) (json.RawMessage, error)
}

// Registry owns the authoritative in-memory mirror of the hub's devices,
// keyed by device id. Entries are replaced wholesale on (re)load and mutated
// attribute-by-attribute on event ingestion. Insertion order is preserved
// for listing.
//
// All methods are safe for concurrent use.
type Registry struct {
	api API

	mu      sync.RWMutex
	devices map[string]*Device
	order   []string
}

// NewRegistry creates a registry backed by the given API client.
func NewRegistry(api API) *Registry {
	return &Registry{
		api:     api,
		devices: make(map[string]*Device),
	}
}

// listingEntry is the minimal shape of a GET devices element. The listing
// may omit full attribute detail, so only the id is taken from it.
type listingEntry struct {
	ID json.Number `json:"id"`
}

// LoadAll populates the registry from the hub. If the registry already
// holds devices and force is false, this is a no-op.
//
// Devices are loaded sequentially, one request at a time. This is an
// explicit rate-limiting decision: the hub is a resource-constrained
// embedded device that rejects or degrades under request bursts. Do not
// parallelize this loop.
func (r *Registry) LoadAll(ctx context.Context, force bool) error {
	if !force && r.Len() > 0 {
		return nil
	}

	raw, err := r.api.Request(ctx, "devices")
	if err != nil {
		return err
	}

	var listing []listingEntry
	if err := json.Unmarshal(raw, &listing); err != nil {
		return fmt.Errorf("decoding device listing: %w", err)
	}
	logging.Debug("Loaded device listing", zap.Int("count", len(listing)))

	for _, entry := range listing {
		if err := r.LoadOne(ctx, entry.ID.String(), force); err != nil {
			return err
		}
	}
	return nil
}

// LoadOne fetches the full detail for one device and stores it, replacing
// any prior entry for that id wholesale. If the device is already cached
// and force is false, no network fetch is performed.
func (r *Registry) LoadOne(ctx context.Context, id string, force bool) error {
	if !force {
		r.mu.RLock()
		_, cached := r.devices[id]
		r.mu.RUnlock()
		if cached {
			return nil
		}
	}

	raw, err := r.api.Request(ctx, "devices/"+url.PathEscape(id))
	if err != nil {
		return err
	}

	var dev Device
	if err := json.Unmarshal(raw, &dev); err != nil {
		return fmt.Errorf("decoding device %s: %w", id, err)
	}
	if dev.ID == "" {
		dev.ID = id
	}

	r.mu.Lock()
	if _, exists := r.devices[dev.ID]; !exists {
		r.order = append(r.order, dev.ID)
	}
	r.devices[dev.ID] = &dev
	r.mu.Unlock()

	logging.Debug("Loaded device",
		zap.String("device_id", dev.ID),
		zap.String("label", dev.Label),
	)
	return nil
}

// Get returns a snapshot of the device with the given id. The returned
// device is a copy; callers can safely inspect or modify it.
func (r *Registry) Get(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[id]
	if !ok {
		return nil, false
	}
	return dev.Clone(), true
}

// All returns snapshots of every cached device in insertion order.
func (r *Registry) All() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]*Device, 0, len(r.order))
	for _, id := range r.order {
		devices = append(devices, r.devices[id].Clone())
	}
	return devices
}

// Len returns the number of cached devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// HasAttribute reports whether the given device has the named attribute.
// Unlike GetAttribute, the device lookup is strict: an unknown device id
// returns ErrDeviceNotFound.
func (r *Registry) HasAttribute(id, attrName string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return dev.Attribute(attrName) != nil, nil
}

// GetAttribute returns a copy of the named attribute, or nil when either
// the device or the attribute is unknown. This read path is deliberately
// lenient where HasAttribute is strict.
func (r *Registry) GetAttribute(id, attrName string) *Attribute {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[id]
	if !ok {
		return nil
	}
	attr := dev.Attribute(attrName)
	if attr == nil {
		return nil
	}
	return attr.Clone()
}

// ApplyUpdate overwrites the current value of one attribute on a cached
// device. It returns whether the update was applied.
//
// An update for a device the registry does not hold is not an error: a push
// can race ahead of the initial pull, so it is logged and dropped. An update
// naming an attribute missing from a known device returns
// *InvalidAttributeError, since the device's attribute set is closed after
// load.
func (r *Registry) ApplyUpdate(id, attrName string, value any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.devices[id]
	if !ok {
		logging.Warn("Dropping update for unknown device",
			zap.String("device_id", id),
			zap.String("attribute", attrName),
		)
		return false, nil
	}

	attr := dev.Attribute(attrName)
	if attr == nil {
		return false, &InvalidAttributeError{DeviceID: id, Attribute: attrName}
	}

	attr.CurrentValue = value
	return true, nil
}
