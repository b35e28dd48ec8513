package mqttbridge

import "errors"

// Sentinel errors for bridge operations.
var (
	// ErrConnectionFailed indicates the initial broker connection failed.
	ErrConnectionFailed = errors.New("mqttbridge: connection failed")

	// ErrNotConnected indicates an operation on a disconnected bridge.
	ErrNotConnected = errors.New("mqttbridge: not connected")

	// ErrPublishFailed indicates an uplink publish was not acknowledged.
	ErrPublishFailed = errors.New("mqttbridge: publish failed")

	// ErrDisabled indicates the bridge is disabled in configuration.
	ErrDisabled = errors.New("mqttbridge: disabled in configuration")
)
