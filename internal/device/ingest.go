package device

// Ingestor is the entry point for inbound attribute-change events. It
// validates each event against the registry, mutates the matching
// attribute, and triggers listener dispatch.
type Ingestor struct {
	registry  *Registry
	listeners *Listeners
}

// NewIngestor creates an ingestor bound to a registry and listener set.
func NewIngestor(registry *Registry, listeners *Listeners) *Ingestor {
	return &Ingestor{
		registry:  registry,
		listeners: listeners,
	}
}

// Process applies one event to the device mirror.
//
// An event for a device the registry does not hold is logged and dropped:
// push and pull race by design, so this is not fatal. An event naming an
// unknown attribute on a known device returns *InvalidAttributeError to the
// caller and fires no listeners. When the update applies, every listener
// registered for the device is invoked exactly once, in registration order
// (a device with zero listeners is a no-op dispatch).
func (i *Ingestor) Process(event Event) error {
	applied, err := i.registry.ApplyUpdate(event.DeviceID, event.Name, event.Value)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	i.listeners.Dispatch(event.DeviceID)
	return nil
}
