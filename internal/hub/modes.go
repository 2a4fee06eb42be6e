package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/mkerr/hubmaker/internal/logging"
)

// Mode is one of the hub's location modes (e.g., "Day", "Evening", "Away").
type Mode struct {
	ID     json.Number `json:"id"`
	Name   string      `json:"name"`
	Active bool        `json:"active"`
}

// ModeListener is notified with the new mode name when the hub's active
// mode changes.
type ModeListener func(mode string)

// modeState tracks the hub's location modes and their observers.
type modeState struct {
	mu        sync.RWMutex
	modes     []Mode
	active    string
	listeners []ModeListener
}

// loadModes fetches the hub's mode list and records the active one.
func (h *Hub) loadModes(ctx context.Context) error {
	raw, err := h.client.Request(ctx, "modes")
	if err != nil {
		return err
	}

	var modes []Mode
	if err := json.Unmarshal(raw, &modes); err != nil {
		return fmt.Errorf("decoding modes: %w", err)
	}

	h.modes.mu.Lock()
	h.modes.modes = modes
	for _, m := range modes {
		if m.Active {
			h.modes.active = m.Name
		}
	}
	h.modes.mu.Unlock()

	logging.Debug("Loaded modes", zap.Int("count", len(modes)))
	return nil
}

// Modes returns the names of the hub's location modes.
func (h *Hub) Modes() []string {
	h.modes.mu.RLock()
	defer h.modes.mu.RUnlock()

	names := make([]string, len(h.modes.modes))
	for i, m := range h.modes.modes {
		names[i] = m.Name
	}
	return names
}

// Mode returns the name of the hub's active mode, or "" when modes have
// not been loaded.
func (h *Hub) Mode() string {
	h.modes.mu.RLock()
	defer h.modes.mu.RUnlock()
	return h.modes.active
}

// SetMode asks the hub to activate the named mode. The local active mode is
// not updated here: the hub confirms the change by pushing a mode event,
// which keeps this mirror consistent with what the hub actually did.
func (h *Hub) SetMode(ctx context.Context, name string) error {
	h.modes.mu.RLock()
	var id string
	for _, m := range h.modes.modes {
		if m.Name == name {
			id = m.ID.String()
			break
		}
	}
	h.modes.mu.RUnlock()

	if id == "" {
		return fmt.Errorf("unknown mode %q", name)
	}

	_, err := h.client.Request(ctx, "modes/"+url.PathEscape(id))
	return err
}

// AddModeListener registers a callback for hub mode changes.
func (h *Hub) AddModeListener(listener ModeListener) {
	h.modes.mu.Lock()
	defer h.modes.mu.Unlock()
	h.modes.listeners = append(h.modes.listeners, listener)
}

// RemoveModeListeners clears all mode-change callbacks.
func (h *Hub) RemoveModeListeners() {
	h.modes.mu.Lock()
	defer h.modes.mu.Unlock()
	h.modes.listeners = nil
}

// processModeEvent records the new active mode and notifies mode listeners
// in registration order, isolating panicking listeners.
func (h *Hub) processModeEvent(name string) {
	h.modes.mu.Lock()
	h.modes.active = name
	for i := range h.modes.modes {
		h.modes.modes[i].Active = h.modes.modes[i].Name == name
	}
	listeners := make([]ModeListener, len(h.modes.listeners))
	copy(listeners, h.modes.listeners)
	h.modes.mu.Unlock()

	logging.Debug("Hub mode changed", zap.String("mode", name))

	for _, listener := range listeners {
		notifyMode(name, listener)
	}
}

func notifyMode(name string, listener ModeListener) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("Mode listener panicked",
				zap.String("mode", name),
				zap.Any("panic", rec),
			)
		}
	}()
	listener(name)
}
