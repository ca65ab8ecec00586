package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidDeviceID is returned when a device ID cannot be used as the name part of a Ditto entity ID.
var ErrInvalidDeviceID = errors.New("invalid device id")

const (
	commandModifySuffix = "things/twin/commands/modify"
	eventModifiedSuffix = "things/twin/events/modified"
	connectionIDPrefix  = "mqtt-connection-"
)

// Identity holds the namespace and device ID of a twinned device. Every name the
// provisioning workflow uses for the device (thing ID, topics, connection ID,
// container name) is derived from it, so it must stay stable for the lifetime of
// one twin/connection pair.
type Identity struct {
	Namespace string
	DeviceID  string
}

// New validates deviceID and returns the Identity for it within namespace.
func New(namespace, deviceID string) (Identity, error) {
	if namespace == "" {
		return Identity{}, fmt.Errorf("%w: empty namespace", ErrInvalidDeviceID)
	}
	if deviceID == "" {
		return Identity{}, fmt.Errorf("%w: empty device id", ErrInvalidDeviceID)
	}
	if strings.ContainsAny(deviceID, "/:") {
		return Identity{}, fmt.Errorf("%w: %q must not contain '/' or ':'", ErrInvalidDeviceID, deviceID)
	}
	if strings.IndexFunc(deviceID, unicode.IsSpace) >= 0 {
		return Identity{}, fmt.Errorf("%w: %q must not contain whitespace", ErrInvalidDeviceID, deviceID)
	}

	return Identity{Namespace: namespace, DeviceID: deviceID}, nil
}

// ThingID returns the Ditto thing ID, "{namespace}:{device_id}".
func (i Identity) ThingID() string {
	return i.Namespace + ":" + i.DeviceID
}

// ConnectionID returns the ID of the Ditto MQTT connection serving this device.
func (i Identity) ConnectionID() string {
	return connectionIDPrefix + i.DeviceID
}

// CommandTopic is the MQTT topic the device publishes twin modify commands to.
func (i Identity) CommandTopic() string {
	return i.ThingID() + "/" + commandModifySuffix
}

// EventTopic is the MQTT topic Ditto publishes twin modified events to.
func (i Identity) EventTopic() string {
	return i.ThingID() + "/" + eventModifiedSuffix
}

// ProtocolTopic is the Ditto protocol topic of a twin modify command,
// "{namespace}/{device_id}/things/twin/commands/modify".
func (i Identity) ProtocolTopic() string {
	return i.Namespace + "/" + i.DeviceID + "/" + commandModifySuffix
}

// ContainerName renders the name of the device's container from a fmt template
// holding a single %s verb, e.g. "%s-container".
func (i Identity) ContainerName(template string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, i.DeviceID)
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.ThingID()
}
