package models

// DittoProtocolMessage is a Ditto protocol envelope exchanged with the device
// over MQTT. Revision is only set on events Ditto emits.
type DittoProtocolMessage struct {
	Topic    string            `json:"topic"`
	Headers  map[string]string `json:"headers,omitempty"`
	Path     string            `json:"path"`
	Value    any               `json:"value"`
	Revision int64             `json:"revision,omitempty"`
}

// WatchReading is one sample of the simulated smart watch.
type WatchReading struct {
	HeartRate    int `json:"heart_rate"`
	BatteryLevel int `json:"battery_level"`
	Steps        int `json:"steps"`
}
