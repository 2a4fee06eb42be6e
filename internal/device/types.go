package device

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DataType identifies the type of an attribute's current value.
type DataType string

// Attribute data types reported by the hub. Attributes with no declared
// type unmarshal as DataTypeUnknown.
const (
	DataTypeNumber  DataType = "NUMBER"
	DataTypeEnum    DataType = "ENUM"
	DataTypeString  DataType = "STRING"
	DataTypeUnknown DataType = ""
)

// Attribute is a named, typed, mutable property of a device (e.g., "switch",
// "level"). CurrentValue is polymorphic by DataType: a string for ENUM/STRING
// attributes, a float64 for NUMBER attributes.
type Attribute struct {
	Name         string   `json:"name"`
	DataType     DataType `json:"dataType,omitempty"`
	CurrentValue any      `json:"currentValue,omitempty"`
	// Values is the set of allowed strings, present when DataType is ENUM.
	Values []string `json:"values,omitempty"`
}

// ValueString returns the current value rendered as a string, or "" when
// the attribute has no value.
func (a *Attribute) ValueString() string {
	switch v := a.CurrentValue.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Clone returns an independent copy of the attribute.
func (a *Attribute) Clone() *Attribute {
	cpy := *a
	if a.Values != nil {
		cpy.Values = make([]string, len(a.Values))
		copy(cpy.Values, a.Values)
	}
	return &cpy
}

// Capability is a tagged variant: the hub's capability list mixes bare
// capability names ("Switch") with inline attribute-descriptor objects
// ({"attributes": [...]}). Exactly one of Name or Attributes is set.
type Capability struct {
	// Name is the capability name for bare entries (e.g., "SwitchLevel")
	Name string

	// Attributes holds the inline descriptors for object entries
	Attributes []Attribute
}

// IsDetail reports whether this entry is an inline attribute descriptor
// rather than a bare capability name.
func (c *Capability) IsDetail() bool {
	return c.Name == ""
}

// UnmarshalJSON decodes either form of a capability entry.
func (c *Capability) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Name)
	}

	var detail struct {
		Attributes []Attribute `json:"attributes"`
	}
	if err := json.Unmarshal(data, &detail); err != nil {
		return fmt.Errorf("decoding capability entry: %w", err)
	}
	c.Attributes = detail.Attributes
	return nil
}

// MarshalJSON encodes the entry back in the hub's wire form.
func (c Capability) MarshalJSON() ([]byte, error) {
	if !c.IsDetail() {
		return json.Marshal(c.Name)
	}
	return json.Marshal(struct {
		Attributes []Attribute `json:"attributes"`
	}{c.Attributes})
}

// Command is a command name a device accepts. Older hub firmware returns
// bare strings, newer firmware returns {"command": "on"} objects; both
// unmarshal to the plain name.
type Command string

// UnmarshalJSON accepts both wire forms of a command entry.
func (cmd *Command) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*cmd = Command(s)
		return nil
	}

	var obj struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decoding command entry: %w", err)
	}
	*cmd = Command(obj.Command)
	return nil
}

// Device is the cached snapshot of a hub device: its attributes,
// capabilities and commands at last load or update. Snapshots are owned by
// the Registry; they are replaced wholesale on (re)load and mutated
// field-by-field on event ingestion.
type Device struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Label        string       `json:"label"`
	Attributes   []*Attribute `json:"attributes"`
	Capabilities []Capability `json:"capabilities"`
	Commands     []Command    `json:"commands"`
}

// String returns a human-readable representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("Device %s (%s)", d.ID, d.Label)
}

// Attribute returns the named attribute, or nil if the device does not
// have it. Attribute names are unique within a device.
func (d *Device) Attribute(name string) *Attribute {
	for _, attr := range d.Attributes {
		if attr.Name == name {
			return attr
		}
	}
	return nil
}

// HasCommand reports whether the device accepts the named command.
func (d *Device) HasCommand(name string) bool {
	for _, cmd := range d.Commands {
		if string(cmd) == name {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the device snapshot.
func (d *Device) Clone() *Device {
	cpy := *d

	if d.Attributes != nil {
		cpy.Attributes = make([]*Attribute, len(d.Attributes))
		for i, attr := range d.Attributes {
			cpy.Attributes[i] = attr.Clone()
		}
	}

	if d.Capabilities != nil {
		cpy.Capabilities = make([]Capability, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}

	if d.Commands != nil {
		cpy.Commands = make([]Command, len(d.Commands))
		copy(cpy.Commands, d.Commands)
	}

	return &cpy
}

// Event is a single attribute-change notification pushed by the hub.
// Events are transient: consumed once by the Ingestor, never stored.
type Event struct {
	// DeviceID identifies the device the event applies to. Empty for
	// non-device events such as mode changes.
	DeviceID string

	// Name is the attribute name (e.g., "switch"), or "mode" for hub
	// mode-change events.
	Name string

	// Value is the new attribute value.
	Value any

	// DisplayName is the device's human-readable name, used only for
	// diagnostics.
	DisplayName string
}

// UnmarshalJSON decodes the hub's event payload. The hub serializes
// deviceId inconsistently (a JSON string over the webhook, a number over
// the event socket), so both forms are accepted.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire struct {
		DeviceID    any    `json:"deviceId"`
		Name        string `json:"name"`
		Value       any    `json:"value"`
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decoding event: %w", err)
	}

	switch id := wire.DeviceID.(type) {
	case nil:
		e.DeviceID = ""
	case string:
		e.DeviceID = id
	case float64:
		e.DeviceID = strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Errorf("decoding event: unsupported deviceId type %T", id)
	}

	e.Name = wire.Name
	e.Value = wire.Value
	e.DisplayName = wire.DisplayName
	return nil
}
