// Package device implements the device state mirror: the in-memory cache of
// hub devices, the listener registry, and the event ingestion path that
// keeps the cache current.
//
// # Architecture
//
// Three cooperating pieces, composed by the hub orchestrator:
//
//   - Registry: the authoritative map of device id to device snapshot
//     (attributes, capabilities, commands). Populated by pull (sequential
//     per-device loads through the Maker API) and mutated by push (webhook
//     or event socket updates).
//   - Listeners: per-device ordered lists of notification callbacks.
//     Callbacks carry no payload; observers re-read state from the Registry.
//   - Ingestor: validates an inbound Event against the Registry, applies the
//     attribute update, and dispatches that device's listeners.
//
// # Push/pull races
//
// A push can arrive for a device the initial pull has not cached yet; such
// events are logged and dropped. An event naming an attribute missing from a
// known device is different: the attribute set of a loaded device is closed,
// so this surfaces as *InvalidAttributeError to the transport caller.
//
// # Rate limiting
//
// Registry.LoadAll loads devices strictly sequentially. This is a deliberate
// throughput-limiting policy for resource-constrained hubs, not an accident;
// see the comment on LoadAll before "fixing" it.
package device
