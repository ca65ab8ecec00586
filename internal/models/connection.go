package models

// Connection is a Ditto connectivity connection descriptor.
type Connection struct {
	ID                   string                `json:"id"`
	ConnectionType       string                `json:"connectionType"`
	ConnectionStatus     string                `json:"connectionStatus"`
	FailoverEnabled      bool                  `json:"failoverEnabled"`
	URI                  string                `json:"uri"`
	ValidateCertificates bool                  `json:"validateCertificates"`
	CA                   string                `json:"ca"`
	Credentials          ConnectionCredentials `json:"credentials"`
	Sources              []Source              `json:"sources"`
	Targets              []Target              `json:"targets"`
}

// ConnectionCredentials carries the client certificate and key Ditto presents to the broker.
type ConnectionCredentials struct {
	Type string `json:"type"`
	Cert string `json:"cert"`
	Key  string `json:"key"`
}

// Source consumes messages from broker topics into Ditto.
type Source struct {
	Addresses            []string `json:"addresses"`
	AuthorizationContext []string `json:"authorizationContext"`
	QOS                  int      `json:"qos"`
	Filters              []string `json:"filters"`
}

// Target publishes Ditto signals of the given topics to a broker topic.
type Target struct {
	Address              string   `json:"address"`
	Topics               []string `json:"topics"`
	AuthorizationContext []string `json:"authorizationContext"`
	QOS                  int      `json:"qos"`
}
