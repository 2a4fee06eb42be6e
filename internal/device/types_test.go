package device

import (
	"encoding/json"
	"testing"
)

// Full device detail as returned by GET devices/{id}, including the mixed
// capability list of bare names and inline attribute descriptors.
const mockDeviceDetail = `{
	"id": "1922",
	"name": "Generic Z-Wave Smart Dimmer",
	"label": "Bedroom Light",
	"attributes": [
		{"dataType": "NUMBER", "currentValue": 10, "name": "level"},
		{"values": ["on", "off"], "name": "switch", "currentValue": "on", "dataType": "ENUM"}
	],
	"capabilities": [
		"Switch",
		{"attributes": [{"name": "switch", "currentValue": "off", "dataType": "ENUM", "values": ["on", "off"]}]},
		"Configuration",
		"SwitchLevel",
		{"attributes": [{"name": "level", "dataType": null}]}
	],
	"commands": ["configure", "flash", "off", "on", "refresh", "setLevel"]
}`

func TestDeviceUnmarshal(t *testing.T) {
	var dev Device
	if err := json.Unmarshal([]byte(mockDeviceDetail), &dev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if dev.ID != "1922" {
		t.Errorf("ID = %s, want 1922", dev.ID)
	}

	if dev.Label != "Bedroom Light" {
		t.Errorf("Label = %s, want Bedroom Light", dev.Label)
	}

	if len(dev.Attributes) != 2 {
		t.Fatalf("len(Attributes) = %d, want 2", len(dev.Attributes))
	}

	level := dev.Attribute("level")
	if level == nil {
		t.Fatal("Attribute(level) = nil, want attribute")
	}
	if level.DataType != DataTypeNumber {
		t.Errorf("level.DataType = %s, want NUMBER", level.DataType)
	}
	if level.CurrentValue != float64(10) {
		t.Errorf("level.CurrentValue = %v, want 10", level.CurrentValue)
	}

	sw := dev.Attribute("switch")
	if sw == nil {
		t.Fatal("Attribute(switch) = nil, want attribute")
	}
	if sw.DataType != DataTypeEnum {
		t.Errorf("switch.DataType = %s, want ENUM", sw.DataType)
	}
	if len(sw.Values) != 2 {
		t.Errorf("len(switch.Values) = %d, want 2", len(sw.Values))
	}
}

func TestDeviceUnmarshal_MixedCapabilities(t *testing.T) {
	var dev Device
	if err := json.Unmarshal([]byte(mockDeviceDetail), &dev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(dev.Capabilities) != 5 {
		t.Fatalf("len(Capabilities) = %d, want 5", len(dev.Capabilities))
	}

	if dev.Capabilities[0].IsDetail() || dev.Capabilities[0].Name != "Switch" {
		t.Errorf("Capabilities[0] = %+v, want bare name Switch", dev.Capabilities[0])
	}

	if !dev.Capabilities[1].IsDetail() {
		t.Fatalf("Capabilities[1] = %+v, want inline descriptor", dev.Capabilities[1])
	}
	if len(dev.Capabilities[1].Attributes) != 1 || dev.Capabilities[1].Attributes[0].Name != "switch" {
		t.Errorf("Capabilities[1].Attributes = %+v, want one switch attribute", dev.Capabilities[1].Attributes)
	}

	// A descriptor with a null dataType still decodes.
	if !dev.Capabilities[4].IsDetail() {
		t.Errorf("Capabilities[4] = %+v, want inline descriptor", dev.Capabilities[4])
	}
	if dev.Capabilities[4].Attributes[0].DataType != DataTypeUnknown {
		t.Errorf("Capabilities[4] dataType = %q, want unknown", dev.Capabilities[4].Attributes[0].DataType)
	}
}

func TestCapabilityMarshal_RoundTrip(t *testing.T) {
	var dev Device
	if err := json.Unmarshal([]byte(mockDeviceDetail), &dev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	data, err := json.Marshal(dev.Capabilities)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var again []Capability
	if err := json.Unmarshal(data, &again); err != nil {
		t.Fatalf("Unmarshal(round trip) error = %v", err)
	}

	if again[0].Name != "Switch" {
		t.Errorf("round trip Capabilities[0].Name = %s, want Switch", again[0].Name)
	}
	if !again[1].IsDetail() {
		t.Errorf("round trip Capabilities[1] lost its detail form")
	}
}

func TestCommandUnmarshal_ObjectForm(t *testing.T) {
	var commands []Command
	if err := json.Unmarshal([]byte(`[{"command": "on"}, {"command": "off"}]`), &commands); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(commands) != 2 || commands[0] != "on" || commands[1] != "off" {
		t.Errorf("commands = %v, want [on off]", commands)
	}
}

func TestHasCommand(t *testing.T) {
	var dev Device
	if err := json.Unmarshal([]byte(mockDeviceDetail), &dev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if !dev.HasCommand("setLevel") {
		t.Error("HasCommand(setLevel) = false, want true")
	}

	if dev.HasCommand("lock") {
		t.Error("HasCommand(lock) = true, want false")
	}
}

func TestAttributeValueString(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string value", "on", "on"},
		{"integer number", float64(10), "10"},
		{"fractional number", float64(21.5), "21.5"},
		{"no value", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := &Attribute{Name: "x", CurrentValue: tt.value}
			if got := attr.ValueString(); got != tt.want {
				t.Errorf("ValueString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventUnmarshal_StringDeviceID(t *testing.T) {
	var ev Event
	data := `{"deviceId": "1922", "name": "switch", "value": "on", "displayName": "Bedroom Light"}`
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if ev.DeviceID != "1922" {
		t.Errorf("DeviceID = %s, want 1922", ev.DeviceID)
	}
	if ev.Name != "switch" || ev.Value != "on" {
		t.Errorf("event = %+v, want switch -> on", ev)
	}
	if ev.DisplayName != "Bedroom Light" {
		t.Errorf("DisplayName = %s, want Bedroom Light", ev.DisplayName)
	}
}

func TestEventUnmarshal_NumericDeviceID(t *testing.T) {
	// The event socket serializes deviceId as a number.
	var ev Event
	data := `{"deviceId": 1922, "name": "level", "value": 50, "displayName": "Bedroom Light"}`
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if ev.DeviceID != "1922" {
		t.Errorf("DeviceID = %s, want 1922", ev.DeviceID)
	}
}

func TestEventUnmarshal_NoDeviceID(t *testing.T) {
	var ev Event
	data := `{"deviceId": null, "name": "mode", "value": "Evening", "displayName": "Home"}`
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if ev.DeviceID != "" {
		t.Errorf("DeviceID = %q, want empty", ev.DeviceID)
	}
	if ev.Name != "mode" {
		t.Errorf("Name = %s, want mode", ev.Name)
	}
}

func TestDeviceClone_Independent(t *testing.T) {
	var dev Device
	if err := json.Unmarshal([]byte(mockDeviceDetail), &dev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	cpy := dev.Clone()
	cpy.Attribute("switch").CurrentValue = "off"

	if dev.Attribute("switch").CurrentValue != "on" {
		t.Error("mutating a clone changed the original device")
	}
}
