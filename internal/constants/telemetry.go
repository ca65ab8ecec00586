package constants

import "time"

// DefaultTelemetryInterval is the interval between simulated watch readings.
const DefaultTelemetryInterval = 5 * time.Second

// Features of the simulated smart watch.
const (
	FeatureHeartRate    = "heart_rate"
	FeatureBatteryLevel = "battery_level"
	FeatureSteps        = "steps"
)

// Default local certificate paths of a simulated device. %s is the device ID.
const (
	DefaultSimulatorCACertificate     = "certs/%s/ca.crt"
	DefaultSimulatorClientCertificate = "certs/%s/client.crt"
	DefaultSimulatorClientKey         = "certs/%s/client.key"
)
