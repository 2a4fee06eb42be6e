package device

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mkerr/hubmaker/internal/logging"
)

// Listener is a change-notification callback. It carries no payload: a
// listener that needs the new value re-reads it from the registry.
type Listener func()

// Listeners holds per-device-id lists of change-notification callbacks.
// Registration order is preserved and is the dispatch order. Callbacks are
// not deduplicated: registering the same callback twice yields two
// invocations per event.
//
// All methods are safe for concurrent use.
type Listeners struct {
	mu       sync.RWMutex
	byDevice map[string][]Listener
}

// NewListeners creates an empty listener registry.
func NewListeners() *Listeners {
	return &Listeners{
		byDevice: make(map[string][]Listener),
	}
}

// Add appends a callback to the given device's list.
func (l *Listeners) Add(deviceID string, listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byDevice[deviceID] = append(l.byDevice[deviceID], listener)
}

// RemoveAll clears the callback list for one device.
func (l *Listeners) RemoveAll(deviceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byDevice, deviceID)
}

// Clear wipes every registration. Called on hub shutdown.
func (l *Listeners) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byDevice = make(map[string][]Listener)
}

// Count returns the number of callbacks registered for a device.
func (l *Listeners) Count(deviceID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byDevice[deviceID])
}

// Dispatch synchronously invokes every callback registered for the device,
// in registration order. Each invocation is isolated: a panicking listener
// is logged and the remaining listeners still run.
func (l *Listeners) Dispatch(deviceID string) {
	l.mu.RLock()
	listeners := make([]Listener, len(l.byDevice[deviceID]))
	copy(listeners, l.byDevice[deviceID])
	l.mu.RUnlock()

	logging.LogDispatch(deviceID, len(listeners))

	for _, listener := range listeners {
		notify(deviceID, listener)
	}
}

// notify invokes a single listener, containing any panic it raises.
func notify(deviceID string, listener Listener) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("Device listener panicked",
				zap.String("device_id", deviceID),
				zap.Any("panic", rec),
			)
		}
	}()
	listener()
}
