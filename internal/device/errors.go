package device

import (
	"errors"
	"fmt"
)

// ErrDeviceNotFound indicates a strict lookup for a device id the registry
// does not hold.
var ErrDeviceNotFound = errors.New("device not found")

// InvalidAttributeError indicates an inbound event named an attribute that
// does not exist on an otherwise-known device. A device's attribute set is
// closed and known after load, so this signals a divergence between the
// cached device shape and the hub's actual shape that the caller should
// know about.
type InvalidAttributeError struct {
	DeviceID  string
	Attribute string
}

// Error implements the error interface
func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("device %s has no attribute %s", e.DeviceID, e.Attribute)
}

// IsInvalidAttribute checks if an error is an unknown-attribute failure
func IsInvalidAttribute(err error) bool {
	var attrErr *InvalidAttributeError
	return errors.As(err, &attrErr)
}
