package constants

import "time"

const (
	DefaultBrokerContainer = "mosquitto"
	DefaultBrokerPort      = 8883
	DefaultBrokerConfigDir = "/mosquitto/config"

	// DefaultResolveInterval and DefaultResolveTimeout bound the broker address lookup.
	DefaultResolveInterval = 5 * time.Second
	DefaultResolveTimeout  = 2 * time.Minute

	DefaultDeviceContainerTemplate = "%s-container"
	DefaultDeviceConfigDir         = "/app/Eclipse-Ditto-MQTT-iwatch-SSL-OOP/mosquitto/config"

	// DefaultValidityDays is the validity of every certificate of the demo trust chain.
	DefaultValidityDays = 3650
)

// File names inside the broker and device config directories.
const (
	CACertFile      = "ca.crt"
	CAKeyFile       = "ca.key"
	OpenSSLConfFile = "openssl.cnf"
	ServerCSRFile   = "server.csr"
	ServerKeyFile   = "server.key"
	ServerCertFile  = "server.crt"
	ClientCSRFile   = "client.csr"
	ClientKeyFile   = "client.key"
	ClientCertFile  = "client.crt"
)
