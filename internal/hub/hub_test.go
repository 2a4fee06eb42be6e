package hub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkerr/hubmaker/internal/device"
	"github.com/mkerr/hubmaker/internal/maker"
)

const mockDeviceListing = `[{"id": "176"}, {"id": "1922"}]`

const mockOutletDetail = `{
	"id": "176", "name": "Outlet", "label": "Porch Outlet",
	"attributes": [{"name": "switch", "currentValue": "off", "dataType": "ENUM", "values": ["on", "off"]}],
	"capabilities": ["Switch"],
	"commands": ["on", "off"]
}`

const mockDimmerDetail = `{
	"id": "1922", "name": "Generic Z-Wave Smart Dimmer", "label": "Bedroom Light",
	"attributes": [
		{"name": "switch", "currentValue": "off", "dataType": "ENUM", "values": ["on", "off"]},
		{"name": "level", "currentValue": 10, "dataType": "NUMBER"}
	],
	"capabilities": ["Switch", "SwitchLevel"],
	"commands": ["on", "off", "setLevel"]
}`

const mockModes = `[
	{"id": "1", "name": "Day", "active": true},
	{"id": "2", "name": "Evening", "active": false},
	{"id": "3", "name": "Away", "active": false}
]`

const mockHubEditPage = `<html><body>
<h2>Hub Details</h2>
<div><div class="menu-header">Hubitat Elevation® Platform Version</div><div class="menu-text">2.3.9.158</div></div>
<div><div class="menu-header">Hardware Version</div><div class="menu-text">Rev C-8</div></div>
<div><div class="menu-header">Hub UID</div><div class="menu-text">8a2f-unit</div></div>
<div><div class="menu-header">IP Address</div><div class="menu-text">10.0.1.99</div></div>
<div><div class="menu-header">MAC Address</div><div class="menu-text">34:E1:D1:80:69:A6</div></div>
<div><div class="menu-header">Free Memory</div><div class="menu-text">312 MB</div></div>
</body></html>`

// apiRecorder records every request path the fake hub receives.
type apiRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *apiRecorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// apiPaths returns the recorded Maker API paths (admin-page requests are
// excluded; they run concurrently with API loading and have no fixed
// position in the sequence).
func (r *apiRecorder) apiPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var paths []string
	for _, p := range r.paths {
		if strings.HasPrefix(p, "/apps/api/") {
			paths = append(paths, strings.TrimPrefix(p, "/apps/api/42"))
		}
	}
	return paths
}

func (r *apiRecorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.paths {
		if p == path {
			n++
		}
	}
	return n
}

// newFakeHubServer serves a minimal Maker API plus the hub admin page.
func newFakeHubServer(t *testing.T) (*httptest.Server, *apiRecorder) {
	t.Helper()

	rec := &apiRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r.URL.EscapedPath())

		if r.URL.Path == "/hub/edit" {
			w.Write([]byte(mockHubEditPage))
			return
		}

		if r.URL.Query().Get("access_token") != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.URL.Path == "/apps/api/42/devices":
			w.Write([]byte(mockDeviceListing))
		case r.URL.Path == "/apps/api/42/devices/176":
			w.Write([]byte(mockOutletDetail))
		case r.URL.Path == "/apps/api/42/devices/1922":
			w.Write([]byte(mockDimmerDetail))
		case r.URL.Path == "/apps/api/42/modes":
			w.Write([]byte(mockModes))
		case strings.HasPrefix(r.URL.Path, "/apps/api/42/modes/"):
			w.Write([]byte(mockModes))
		case strings.HasPrefix(r.URL.Path, "/apps/api/42/postURL/"):
			w.Write([]byte(`{"url": "registered"}`))
		case strings.HasPrefix(r.URL.Path, "/apps/api/42/devices/"):
			// Command requests: devices/{id}/{command}[/{arg}]
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	return server, rec
}

// fakeEventListener satisfies EventListener without binding a socket.
type fakeEventListener struct {
	mu      sync.Mutex
	started bool
	stopped bool
	handler func(device.Event)
}

func (f *fakeEventListener) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeEventListener) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeEventListener) URL() string { return "http://127.0.0.1:9999" }

func (f *fakeEventListener) isStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeEventListener) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// push simulates the transport delivering one decoded webhook event.
func (f *fakeEventListener) push(ev device.Event) {
	f.handler(ev)
}

// newTestHub builds a Hub wired to a fake hub server and a fake listener.
func newTestHub(t *testing.T) (*Hub, *apiRecorder, *fakeEventListener) {
	t.Helper()

	server, rec := newFakeHubServer(t)
	listener := &fakeEventListener{}

	h, err := New(Config{
		Host:        server.URL,
		AppID:       "42",
		AccessToken: "token",
		NewListener: func(handler func(device.Event)) (EventListener, error) {
			listener.handler = handler
			return listener, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(h.Stop)

	return h, rec, listener
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew_RequiresConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty host", Config{AppID: "42", AccessToken: "token"}},
		{"empty app ID", Config{Host: "10.0.1.99", AccessToken: "token"}},
		{"empty token", Config{Host: "10.0.1.99", AppID: "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, maker.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_BareHostDefaultsToHTTP(t *testing.T) {
	h, err := New(Config{Host: "10.0.1.99", AppID: "42", AccessToken: "token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if h.ID() != "10.0.1.99::42" {
		t.Errorf("ID() = %s, want 10.0.1.99::42", h.ID())
	}
}

func TestStart(t *testing.T) {
	h, _, listener := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !listener.isStarted() {
		t.Error("event listener was not started")
	}

	if !h.Started() {
		t.Error("Started() = false after successful Start")
	}

	devices := h.Devices()
	if len(devices) != 2 {
		t.Fatalf("len(Devices()) = %d, want 2", len(devices))
	}
	if devices[0].ID != "176" || devices[1].ID != "1922" {
		t.Errorf("device order = [%s %s], want [176 1922]", devices[0].ID, devices[1].ID)
	}

	if h.Mode() != "Day" {
		t.Errorf("Mode() = %s, want Day", h.Mode())
	}
}

func TestStart_RequestSequence(t *testing.T) {
	h, rec, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	paths := rec.apiPaths()
	want := []string{
		"/postURL/http:%2F%2F127.0.0.1:9999",
		"/modes",
		"/devices",
		"/devices/176",
		"/devices/1922",
	}

	if len(paths) != len(want) {
		t.Fatalf("API requests = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestStart_LoadsInfo(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if h.SWVersion() != "2.3.9.158" {
		t.Errorf("SWVersion() = %s, want 2.3.9.158", h.SWVersion())
	}
	if h.HWVersion() != "Rev C-8" {
		t.Errorf("HWVersion() = %s, want Rev C-8", h.HWVersion())
	}
	if h.MAC() != "34:E1:D1:80:69:A6" {
		t.Errorf("MAC() = %s, want 34:E1:D1:80:69:A6", h.MAC())
	}
	if h.UID() != "8a2f-unit" {
		t.Errorf("UID() = %s, want 8a2f-unit", h.UID())
	}
	if h.Address() != "10.0.1.99" {
		t.Errorf("Address() = %s, want 10.0.1.99", h.Address())
	}
}

func TestInfo_UnknownBeforeLoad(t *testing.T) {
	h, err := New(Config{Host: "10.0.1.99", AppID: "42", AccessToken: "token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if h.MAC() != "unknown" {
		t.Errorf("MAC() = %s, want unknown", h.MAC())
	}
	if h.SWVersion() != "unknown" {
		t.Errorf("SWVersion() = %s, want unknown", h.SWVersion())
	}
}

func TestStart_CustomEventURL(t *testing.T) {
	server, rec := newFakeHubServer(t)
	listener := &fakeEventListener{}

	h, err := New(Config{
		Host:        server.URL,
		AppID:       "42",
		AccessToken: "token",
		EventURL:    "http://proxy.local/hub-events",
		NewListener: func(handler func(device.Event)) (EventListener, error) {
			listener.handler = handler
			return listener, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(h.Stop)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	paths := rec.apiPaths()
	if len(paths) == 0 || paths[0] != "/postURL/http:%2F%2Fproxy.local%2Fhub-events" {
		t.Errorf("first API request = %v, want the custom event URL registration", paths)
	}
}

func TestWebhookEvent_FlowsThroughChannel(t *testing.T) {
	h, _, listener := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	notified := make(chan struct{}, 1)
	h.AddDeviceListener("1922", func() { notified <- struct{}{} })

	listener.push(device.Event{
		DeviceID:    "1922",
		Name:        "switch",
		Value:       "on",
		DisplayName: "Bedroom Light",
	})

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for listener notification")
	}

	waitFor(t, "attribute update", func() bool {
		attr := h.DeviceAttribute("1922", "switch")
		return attr != nil && attr.CurrentValue == "on"
	})
}

func TestProcessEvent_DeviceEvent(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	count := 0
	h.AddDeviceListener("1922", func() { count++ })

	err := h.ProcessEvent(device.Event{
		DeviceID:    "1922",
		Name:        "switch",
		Value:       "on",
		DisplayName: "Bedroom Light",
	})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}

	attr := h.DeviceAttribute("1922", "switch")
	if attr == nil || attr.CurrentValue != "on" {
		t.Errorf("switch = %v, want on", attr)
	}
	if count != 1 {
		t.Errorf("listener fired %d times, want 1", count)
	}
}

func TestProcessEvent_UnknownAttribute(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := h.ProcessEvent(device.Event{DeviceID: "1922", Name: "humidity", Value: 55})
	if !device.IsInvalidAttribute(err) {
		t.Errorf("ProcessEvent() error = %v, want *InvalidAttributeError", err)
	}
}

func TestProcessEvent_ModeEvent(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var gotMode string
	h.AddModeListener(func(mode string) { gotMode = mode })

	err := h.ProcessEvent(device.Event{Name: "mode", Value: "Evening", DisplayName: "Home"})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}

	if h.Mode() != "Evening" {
		t.Errorf("Mode() = %s, want Evening", h.Mode())
	}
	if gotMode != "Evening" {
		t.Errorf("mode listener got %q, want Evening", gotMode)
	}
}

func TestProcessEvent_ModeListenerRegistration(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	called := false
	if err := h.ProcessEvent(device.Event{Name: "mode", Value: "Evening"}); err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	if called {
		t.Error("unregistered mode listener fired")
	}

	h.AddModeListener(func(string) { called = true })
	if err := h.ProcessEvent(device.Event{Name: "mode", Value: "Away"}); err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	if !called {
		t.Error("registered mode listener did not fire")
	}
}

func TestProcessEvent_OtherEventIgnored(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// A non-device, non-mode event (e.g., sunrise) is ignored.
	err := h.ProcessEvent(device.Event{Name: "sunrise", Value: ""})
	if err != nil {
		t.Errorf("ProcessEvent() error = %v, want nil", err)
	}

	attr := h.DeviceAttribute("1922", "switch")
	if attr == nil || attr.CurrentValue != "off" {
		t.Errorf("switch = %v, want off (unchanged)", attr)
	}
}

func TestStop(t *testing.T) {
	h, _, listener := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	fired := false
	h.AddDeviceListener("1922", func() { fired = true })

	h.Stop()

	if !listener.isStopped() {
		t.Error("event listener was not stopped")
	}
	if h.Started() {
		t.Error("Started() = true after Stop")
	}

	// Listener registrations are cleared on stop.
	if err := h.ProcessEvent(device.Event{DeviceID: "1922", Name: "switch", Value: "on"}); err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	if fired {
		t.Error("device listener fired after Stop cleared registrations")
	}
}

func TestStop_AfterFailedStart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	listener := &fakeEventListener{}
	h, err := New(Config{
		Host:        server.URL,
		AppID:       "42",
		AccessToken: "token",
		NewListener: func(handler func(device.Event)) (EventListener, error) {
			listener.handler = handler
			return listener, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := h.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want failure")
	}

	// The listener's address must still be released by Stop.
	h.Stop()
	if !listener.isStopped() {
		t.Error("event listener not stopped after failed Start")
	}
}

func TestStart_ProtocolErrorsPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	h, err := New(Config{
		Host:        server.URL,
		AppID:       "42",
		AccessToken: "bad-token",
		NewListener: func(handler func(device.Event)) (EventListener, error) {
			return &fakeEventListener{handler: handler}, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(h.Stop)

	if err := h.Start(context.Background()); !errors.Is(err, maker.ErrInvalidToken) {
		t.Errorf("Start() error = %v, want ErrInvalidToken", err)
	}
}

func TestStart_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	h, err := New(Config{
		Host:        addr,
		AppID:       "42",
		AccessToken: "token",
		NewListener: func(handler func(device.Event)) (EventListener, error) {
			return &fakeEventListener{handler: handler}, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(h.Stop)

	err = h.Start(context.Background())

	var connErr *maker.ConnectionError
	if !errors.As(err, &connErr) {
		t.Errorf("Start() error = %v, want *maker.ConnectionError", err)
	}
}

func TestCheckConfig(t *testing.T) {
	server, rec := newFakeHubServer(t)

	h, err := New(Config{Host: server.URL, AppID: "42", AccessToken: "token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := h.CheckConfig(context.Background()); err != nil {
		t.Fatalf("CheckConfig() error = %v", err)
	}

	// CheckConfig probes the device listing but loads no device detail.
	if got := rec.count("/apps/api/42/devices/1922"); got != 0 {
		t.Errorf("CheckConfig loaded device detail %d times, want 0", got)
	}

	if h.Started() {
		t.Error("CheckConfig must not mark the hub started")
	}
}

func TestCheckConfig_BadToken(t *testing.T) {
	server, _ := newFakeHubServer(t)

	h, err := New(Config{Host: server.URL, AppID: "42", AccessToken: "wrong"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := h.CheckConfig(context.Background()); !errors.Is(err, maker.ErrInvalidToken) {
		t.Errorf("CheckConfig() error = %v, want ErrInvalidToken", err)
	}
}

func TestSendCommand(t *testing.T) {
	h, rec, _ := newTestHub(t)

	if _, err := h.SendCommand(context.Background(), "1922", "setLevel", "50"); err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}

	if got := rec.count("/apps/api/42/devices/1922/setLevel/50"); got != 1 {
		t.Errorf("command path requested %d times, want 1", got)
	}
}

func TestSendCommand_NoArg(t *testing.T) {
	h, rec, _ := newTestHub(t)

	if _, err := h.SendCommand(context.Background(), "1922", "on", ""); err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}

	if got := rec.count("/apps/api/42/devices/1922/on"); got != 1 {
		t.Errorf("command path requested %d times, want 1", got)
	}
}

func TestRefreshDevice_AlwaysFetches(t *testing.T) {
	h, rec, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	before := rec.count("/apps/api/42/devices/1922")

	if err := h.RefreshDevice(context.Background(), "1922"); err != nil {
		t.Fatalf("RefreshDevice() error = %v", err)
	}

	if got := rec.count("/apps/api/42/devices/1922"); got != before+1 {
		t.Errorf("device fetched %d times, want %d", got, before+1)
	}
}

func TestLoadDevices_WithoutStart(t *testing.T) {
	h, rec, listener := newTestHub(t)

	if err := h.LoadDevices(context.Background()); err != nil {
		t.Fatalf("LoadDevices() error = %v", err)
	}

	if len(h.Devices()) != 2 {
		t.Fatalf("len(Devices()) = %d, want 2", len(h.Devices()))
	}

	// One-shot loading must not register a callback URL or start the
	// listener.
	for _, p := range rec.apiPaths() {
		if strings.HasPrefix(p, "/postURL/") {
			t.Errorf("LoadDevices registered a callback URL: %s", p)
		}
	}
	if listener.isStarted() {
		t.Error("LoadDevices started the event listener")
	}
}

func TestModes(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	modes := h.Modes()
	if len(modes) != 3 {
		t.Fatalf("len(Modes()) = %d, want 3", len(modes))
	}
	if modes[0] != "Day" || modes[1] != "Evening" || modes[2] != "Away" {
		t.Errorf("Modes() = %v, want [Day Evening Away]", modes)
	}
}

func TestSetMode(t *testing.T) {
	h, rec, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := h.SetMode(context.Background(), "Evening"); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}

	if got := rec.count("/apps/api/42/modes/2"); got != 1 {
		t.Errorf("modes/2 requested %d times, want 1", got)
	}

	// The local mirror only changes when the hub pushes a mode event.
	if h.Mode() != "Day" {
		t.Errorf("Mode() = %s, want Day until the hub confirms", h.Mode())
	}

	if err := h.ProcessEvent(device.Event{Name: "mode", Value: "Evening"}); err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	if h.Mode() != "Evening" {
		t.Errorf("Mode() = %s, want Evening after the mode event", h.Mode())
	}
}

func TestSetMode_Unknown(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := h.SetMode(context.Background(), "Vacation"); err == nil {
		t.Error("SetMode(unknown) error = nil, want failure")
	}
}

func TestDeviceHasAttribute(t *testing.T) {
	h, _, _ := newTestHub(t)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	has, err := h.DeviceHasAttribute("1922", "level")
	if err != nil || !has {
		t.Errorf("DeviceHasAttribute(1922, level) = %v, %v, want true, nil", has, err)
	}

	if _, err := h.DeviceHasAttribute("999", "level"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("DeviceHasAttribute(unknown) error = %v, want ErrDeviceNotFound", err)
	}
}
