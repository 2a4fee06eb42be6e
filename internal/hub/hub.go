package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/mkerr/hubmaker/internal/device"
	"github.com/mkerr/hubmaker/internal/logging"
	"github.com/mkerr/hubmaker/internal/maker"
	"github.com/mkerr/hubmaker/internal/server"
)

// eventBufferSize is the depth of the inbound event queue between the
// webhook listener's serving goroutines and the hub's single consumer.
const eventBufferSize = 64

// EventListener is the external collaborator that physically receives the
// hub's pushed events. It owns its network resources between Start and Stop
// and must release them deterministically on Stop, even after a failed
// Start. URL returns the callback URL to register with the hub, or "" for
// transports that pull events themselves and need no registration.
type EventListener interface {
	Start() error
	Stop() error
	URL() string
}

// ListenerFactory builds an EventListener that delivers each decoded event
// to the given handler. Injectable so tests and alternative transports can
// replace the default webhook server.
type ListenerFactory func(handler func(device.Event)) (EventListener, error)

// Config holds the parameters for connecting to one hub.
type Config struct {
	// Host is the hub's hostname, address or full URL. Scheme defaults
	// to http when absent.
	Host string

	// AppID is the Maker API app instance ID
	AppID string

	// AccessToken is the Maker API access token
	AccessToken string

	// ListenAddr is the local address for the webhook listener
	// (default "0.0.0.0")
	ListenAddr string

	// ListenPort is the local port for the webhook listener
	// (default 0 = random open port)
	ListenPort int

	// EventURL, when set, overrides the listener-derived callback URL
	// registered with the hub. Useful behind NAT or a reverse proxy.
	EventURL string

	// NewListener overrides how the webhook listener is constructed.
	// Defaults to the built-in HTTP server.
	NewListener ListenerFactory
}

// Hub is a stateful mirror of one hub: it downloads initial device data
// over the Maker API and keeps it current from events the hub pushes back.
//
// One Hub instance talks to exactly one hub. Nothing is persisted: the
// mirror is rebuilt from the hub on every Start.
type Hub struct {
	client     *maker.Client
	devices    *device.Registry
	listeners  *device.Listeners
	ingestor   *device.Ingestor
	infoClient *http.Client

	newListener ListenerFactory
	eventURL    string

	mu       sync.Mutex
	started  bool
	listener EventListener
	events   chan device.Event
	done     chan struct{}

	infoMu sync.RWMutex
	info   Info

	modes modeState
}

// New creates a Hub interface from the given config. Returns
// maker.ErrInvalidConfig when host, app ID or access token is missing.
func New(cfg Config) (*Hub, error) {
	client, err := maker.New(cfg.Host, cfg.AppID, cfg.AccessToken)
	if err != nil {
		return nil, err
	}

	registry := device.NewRegistry(client)
	listeners := device.NewListeners()

	h := &Hub{
		client:     client,
		devices:    registry,
		listeners:  listeners,
		ingestor:   device.NewIngestor(registry, listeners),
		infoClient: &http.Client{Timeout: InfoTimeout},
		eventURL:   cfg.EventURL,
	}

	h.newListener = cfg.NewListener
	if h.newListener == nil {
		addr := cfg.ListenAddr
		if addr == "" {
			addr = "0.0.0.0"
		}
		port := cfg.ListenPort
		hubHost := client.Host
		h.newListener = func(handler func(device.Event)) (EventListener, error) {
			return server.New(addr, port, hubHost, handler), nil
		}
	}

	logging.Info("Created hub interface",
		zap.String("host", client.Host),
		zap.String("app_id", client.AppID),
	)
	return h, nil
}

// String returns a string representation of this hub
func (h *Hub) String() string {
	return fmt.Sprintf("<Hub host=%s app_id=%s>", h.client.Host, h.client.AppID)
}

// ID returns a unique identifier for this hub interface.
func (h *Hub) ID() string {
	return fmt.Sprintf("%s::%s", h.client.Host, h.client.AppID)
}

// Name returns the hub's product name.
func (h *Hub) Name() string {
	return "Hubitat Elevation"
}

// Started reports whether Start has completed successfully.
func (h *Hub) Started() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// Start downloads initial hub and device state and begins receiving pushed
// events. Hub and device data are not available until Start has completed.
//
// Sequence: acquire and start the event listener, register its callback URL
// with the hub, then load hub info and device state concurrently. Transport
// failures surface as *maker.ConnectionError; protocol failures (bad token,
// API errors) pass through unchanged. On failure the listener stays bound
// until Stop, which releases it deterministically.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return nil
	}

	listener, err := h.newListener(h.enqueueEvent)
	if err != nil {
		h.mu.Unlock()
		return fmt.Errorf("creating event listener: %w", err)
	}
	h.listener = listener

	if err := listener.Start(); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("starting event listener: %w", err)
	}

	h.events = make(chan device.Event, eventBufferSize)
	h.done = make(chan struct{})
	go h.consumeEvents(h.events, h.done)
	h.mu.Unlock()

	// A transport that pulls events itself (e.g. the hub's event socket)
	// reports no callback URL and needs no registration.
	eventURL := h.eventURL
	if eventURL == "" {
		eventURL = listener.URL()
	}
	if eventURL != "" {
		if err := h.SetEventURL(ctx, eventURL); err != nil {
			return err
		}
	}

	// Info and device state load concurrently to minimize startup
	// latency. Info loading never fails; see loadInfo.
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		h.loadInfo(ctx)
	}()

	var loadErr error
	go func() {
		defer wg.Done()
		if err := h.loadModes(ctx); err != nil {
			loadErr = err
			return
		}
		loadErr = h.devices.LoadAll(ctx, false)
	}()

	wg.Wait()
	if loadErr != nil {
		return loadErr
	}

	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	logging.Debug("Connected to hub", zap.String("host", h.client.Host))
	return nil
}

// CheckConfig verifies that the hub is reachable and the Maker API answers
// with the configured credentials, without starting a listener or loading
// full device state. API reachability and info loading run concurrently.
func (h *Hub) CheckConfig(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		h.loadInfo(ctx)
	}()

	var apiErr error
	go func() {
		defer wg.Done()
		_, apiErr = h.client.Request(ctx, "devices")
	}()

	wg.Wait()
	return apiErr
}

// Stop stops the event listener (if running), clears all listener
// registrations, and marks the hub not-started.
//
// Known behavior: the callback URL registered with the hub via postURL is
// not unregistered; the hub keeps posting to the now-dead URL until another
// registration overwrites it.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener != nil {
		if err := h.listener.Stop(); err != nil {
			logging.Warn("Stopping event listener failed", zap.Error(err))
		}
		h.listener = nil
	}

	if h.done != nil {
		close(h.done)
		h.done = nil
		h.events = nil
	}

	h.listeners.Clear()
	h.RemoveModeListeners()
	h.started = false
}

// SetEventURL registers the URL the hub will POST device events to.
func (h *Hub) SetEventURL(ctx context.Context, eventURL string) error {
	logging.Info("Registering event URL with hub", zap.String("event_url", eventURL))
	_, err := h.client.Request(ctx, "postURL/"+url.PathEscape(eventURL))
	return err
}

// SendCommand sends a device command to the hub. arg is optional; pass ""
// for commands that take no argument. The response is the raw decoded JSON,
// whose shape varies by command.
func (h *Hub) SendCommand(ctx context.Context, deviceID, command, arg string) (json.RawMessage, error) {
	path := fmt.Sprintf("devices/%s/%s", url.PathEscape(deviceID), url.PathEscape(command))
	if arg != "" {
		path += "/" + url.PathEscape(arg)
	}
	return h.client.Request(ctx, path)
}

// LoadDevices downloads device state without starting event delivery.
// Intended for one-shot reads; a long-lived mirror should use Start.
func (h *Hub) LoadDevices(ctx context.Context) error {
	return h.devices.LoadAll(ctx, false)
}

// LoadModes downloads the hub's mode list without starting event delivery.
func (h *Hub) LoadModes(ctx context.Context) error {
	return h.loadModes(ctx)
}

// RefreshDevice forces a reload of one device's state from the hub.
func (h *Hub) RefreshDevice(ctx context.Context, deviceID string) error {
	return h.devices.LoadOne(ctx, deviceID, true)
}

// Devices returns snapshots of all mirrored devices in load order.
func (h *Hub) Devices() []*device.Device {
	return h.devices.All()
}

// Device returns a snapshot of one mirrored device.
func (h *Hub) Device(deviceID string) (*device.Device, bool) {
	return h.devices.Get(deviceID)
}

// DeviceAttribute returns the current value of one device attribute, or nil
// when the device or attribute is unknown.
func (h *Hub) DeviceAttribute(deviceID, attrName string) *device.Attribute {
	return h.devices.GetAttribute(deviceID, attrName)
}

// DeviceHasAttribute reports whether a mirrored device has the named
// attribute. Returns device.ErrDeviceNotFound for an unknown device id.
func (h *Hub) DeviceHasAttribute(deviceID, attrName string) (bool, error) {
	return h.devices.HasAttribute(deviceID, attrName)
}

// AddDeviceListener registers a callback invoked whenever the given
// device's state changes.
func (h *Hub) AddDeviceListener(deviceID string, listener device.Listener) {
	h.listeners.Add(deviceID, listener)
}

// RemoveDeviceListeners removes all callbacks for one device.
func (h *Hub) RemoveDeviceListeners(deviceID string) {
	h.listeners.RemoveAll(deviceID)
}

// ProcessEvent is the public event intake. Device events update the mirror
// and notify that device's listeners; mode events update the active mode
// and notify mode listeners; anything else is logged and ignored.
//
// An event naming an unknown attribute on a known device returns
// *device.InvalidAttributeError to the transport caller.
func (h *Hub) ProcessEvent(event device.Event) error {
	logging.LogEvent(event.DeviceID, event.DisplayName, event.Name, event.Value)

	switch {
	case event.DeviceID != "":
		return h.ingestor.Process(event)
	case event.Name == "mode":
		if name, ok := event.Value.(string); ok {
			h.processModeEvent(name)
		}
		return nil
	default:
		logging.Debug("Ignoring non-device event",
			zap.String("name", event.Name),
			zap.Any("value", event.Value),
		)
		return nil
	}
}

// HW accessors: values default to "unknown" until loadInfo has succeeded.

// HWVersion returns the hub's hardware version.
func (h *Hub) HWVersion() string { return h.infoField(func(i Info) string { return i.HWVersion }) }

// SWVersion returns the hub's platform (software) version.
func (h *Hub) SWVersion() string { return h.infoField(func(i Info) string { return i.SWVersion }) }

// MAC returns the hub's MAC address.
func (h *Hub) MAC() string { return h.infoField(func(i Info) string { return i.MAC }) }

// UID returns the hub's unique hardware ID.
func (h *Hub) UID() string { return h.infoField(func(i Info) string { return i.UID }) }

// Address returns the hub's IP address as reported by its admin page.
func (h *Hub) Address() string { return h.infoField(func(i Info) string { return i.Address }) }

func (h *Hub) infoField(get func(Info) string) string {
	h.infoMu.RLock()
	defer h.infoMu.RUnlock()

	if v := get(h.info); v != "" {
		return v
	}
	return "unknown"
}

// enqueueEvent hands an event from the transport to the hub's single
// consumer goroutine. Transport goroutines never touch hub state directly.
func (h *Hub) enqueueEvent(event device.Event) {
	h.mu.Lock()
	events, done := h.events, h.done
	h.mu.Unlock()

	if events == nil || done == nil {
		return
	}

	select {
	case events <- event:
	case <-done:
	}
}

// consumeEvents serializes all event-driven mutation onto one goroutine.
func (h *Hub) consumeEvents(events <-chan device.Event, done <-chan struct{}) {
	for {
		select {
		case event := <-events:
			if err := h.ProcessEvent(event); err != nil {
				logging.Error("Processing pushed event failed",
					zap.String("device_id", event.DeviceID),
					zap.String("attribute", event.Name),
					zap.Error(err),
				)
			}
		case <-done:
			return
		}
	}
}
