package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v7"

	"github.com/iotp2c/ditto-twin/internal/constants"
	"github.com/iotp2c/ditto-twin/pkg/file"
)

var (
	// ErrConfigNotFound is returned when an explicitly requested configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrSharedCertificate is returned when two simulated devices would dial with the same key pair.
	ErrSharedCertificate = errors.New("certificate path shared by several devices")
)

// Credentials is a basic-auth username/password pair.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config represents the structure of the configuration file.
type Config struct {
	Ditto struct {
		Scheme           string        `yaml:"scheme"`            // http or https
		Host             string        `yaml:"host"`              // Ditto gateway/nginx host
		Port             int           `yaml:"port"`              // Ditto gateway/nginx port
		RequestTimeout   time.Duration `yaml:"request_timeout"`   // Timeout of a single HTTP request
		PiggybackTimeout time.Duration `yaml:"piggyback_timeout"` // Timeout Ditto applies to piggyback commands
		Namespace        string        `yaml:"namespace"`         // Namespace of things and policy
		PolicyName       string        `yaml:"policy_name"`       // Name part of the shared policy ID
		Subject          string        `yaml:"subject"`           // Authorization subject granted by the policy

		// Tenant credentials manage things and policies.
		Tenant struct {
			Username string `yaml:"username" env:"DITTO_TENANT_USERNAME"`
			Password string `yaml:"password" env:"DITTO_TENANT_PASSWORD"`
		} `yaml:"tenant"`

		// Operator credentials manage connections through the devops piggyback API.
		Operator struct {
			Username string `yaml:"username" env:"DITTO_OPERATOR_USERNAME"`
			Password string `yaml:"password" env:"DITTO_OPERATOR_PASSWORD"`
		} `yaml:"operator"`

		Readiness struct {
			MaxAttempts int           `yaml:"max_attempts"` // Attempts before the backend is declared unavailable
			Delay       time.Duration `yaml:"delay"`        // Fixed delay between attempts
		} `yaml:"readiness"`
	} `yaml:"ditto"`

	Broker struct {
		Container       string        `yaml:"container"` // Name of the broker container
		Scheme          string        `yaml:"scheme"`    // URI scheme Ditto dials the broker with
		Port            int           `yaml:"port"`      // TLS port of the broker
		Username        string        `yaml:"username" env:"BROKER_USERNAME"`
		Password        string        `yaml:"password" env:"BROKER_PASSWORD"`
		ConfigDir       string        `yaml:"config_dir"`       // Directory holding ca.key/ca.crt in the broker container
		ResolveInterval time.Duration `yaml:"resolve_interval"` // Interval between broker address lookups
		ResolveTimeout  time.Duration `yaml:"resolve_timeout"`  // Bound on broker address resolution
	} `yaml:"broker"`

	Device struct {
		ContainerTemplate string `yaml:"container_template"` // fmt template deriving the device container name
		ConfigDir         string `yaml:"config_dir"`         // Directory holding the client key pair in the device container
	} `yaml:"device"`

	PKI struct {
		ValidityDays     int    `yaml:"validity_days"`      // Validity of issued certificates
		Country          string `yaml:"country"`            // Subject C
		State            string `yaml:"state"`              // Subject ST
		City             string `yaml:"city"`               // Subject L
		Organization     string `yaml:"organization"`       // Subject O
		OrgUnit          string `yaml:"org_unit"`           // Subject OU
		CACommonName     string `yaml:"ca_common_name"`     // CN of the broker CA
		ServerCommonName string `yaml:"server_common_name"` // CN of the broker server certificate
		InstallOpenSSL   bool   `yaml:"install_openssl"`    // Install openssl in the broker container before bootstrapping
	} `yaml:"pki"`

	Simulator struct {
		Broker             string        `yaml:"broker"`               // e.g. ssl://localhost:8883
		CACertificate      string        `yaml:"ca_certificate"`       // Path template of the CA certificate, %s is the device ID
		ClientCertificate  string        `yaml:"client_certificate"`   // Path template of the device certificate
		ClientKey          string        `yaml:"client_key"`           // Path template of the device private key
		InsecureSkipVerify bool          `yaml:"insecure_skip_verify"` // Skip broker hostname verification
		Interval           time.Duration `yaml:"interval"`             // Interval between telemetry messages
		QOS                int           `yaml:"qos"`                  // MQTT QoS level for telemetry
	} `yaml:"simulator"`

	Logging struct {
		Level  string `yaml:"level" env:"TWIN_LOG_LEVEL"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

// LoadConfig loads the YAML configuration from the specified file, applies
// environment overrides and fills unset fields with defaults.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ResolveConfig loads filename when it exists. A missing file yields
// DefaultConfig, unless required is set, in which case it is an error.
func ResolveConfig(filename string, required bool, fileClient file.FileOperations) (*Config, error) {
	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", filename, err)
	}
	if !exists {
		if required {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
		}
		return DefaultConfig(), nil
	}
	return LoadConfig(filename, fileClient)
}

// DefaultConfig returns a configuration holding only defaults.
func DefaultConfig() *Config {
	var config Config
	config.ApplyDefaults()
	return &config
}

// ApplyDefaults fills zero-valued fields with the values of the reference deployment.
func (c *Config) ApplyDefaults() {
	setString(&c.Ditto.Scheme, "http")
	setString(&c.Ditto.Host, "localhost")
	setInt(&c.Ditto.Port, constants.DefaultDittoPort)
	setDuration(&c.Ditto.RequestTimeout, constants.DefaultRequestTimeout)
	setDuration(&c.Ditto.PiggybackTimeout, constants.DefaultPiggybackTimeout)
	setString(&c.Ditto.Namespace, constants.DefaultNamespace)
	setString(&c.Ditto.PolicyName, constants.DefaultPolicyName)
	setString(&c.Ditto.Subject, constants.DefaultSubject)
	setString(&c.Ditto.Tenant.Username, "ditto")
	setString(&c.Ditto.Tenant.Password, "ditto")
	setString(&c.Ditto.Operator.Username, "devops")
	setString(&c.Ditto.Operator.Password, "foobar")
	setInt(&c.Ditto.Readiness.MaxAttempts, constants.DefaultReadinessAttempts)
	setDuration(&c.Ditto.Readiness.Delay, constants.DefaultReadinessDelay)

	setString(&c.Broker.Container, constants.DefaultBrokerContainer)
	setString(&c.Broker.Scheme, "ssl")
	setInt(&c.Broker.Port, constants.DefaultBrokerPort)
	setString(&c.Broker.Username, "ditto")
	setString(&c.Broker.Password, "ditto")
	setString(&c.Broker.ConfigDir, constants.DefaultBrokerConfigDir)
	setDuration(&c.Broker.ResolveInterval, constants.DefaultResolveInterval)
	setDuration(&c.Broker.ResolveTimeout, constants.DefaultResolveTimeout)

	setString(&c.Device.ContainerTemplate, constants.DefaultDeviceContainerTemplate)
	setString(&c.Device.ConfigDir, constants.DefaultDeviceConfigDir)

	setInt(&c.PKI.ValidityDays, constants.DefaultValidityDays)
	setString(&c.PKI.Country, "PT")
	setString(&c.PKI.State, "MAFRA")
	setString(&c.PKI.City, "LISBON")
	setString(&c.PKI.Organization, "My Company")
	setString(&c.PKI.OrgUnit, "IT Department")
	setString(&c.PKI.CACommonName, "CA")
	setString(&c.PKI.ServerCommonName, "MQTT Broker")

	setString(&c.Simulator.Broker, fmt.Sprintf("ssl://localhost:%d", c.Broker.Port))
	setString(&c.Simulator.CACertificate, constants.DefaultSimulatorCACertificate)
	setString(&c.Simulator.ClientCertificate, constants.DefaultSimulatorClientCertificate)
	setString(&c.Simulator.ClientKey, constants.DefaultSimulatorClientKey)
	setDuration(&c.Simulator.Interval, constants.DefaultTelemetryInterval)

	setString(&c.Logging.Level, "info")
}

// DittoBaseURL returns the base URL of the Ditto HTTP API.
func (c *Config) DittoBaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Ditto.Scheme, c.Ditto.Host, c.Ditto.Port)
}

// PolicyID returns the ID of the policy shared by all twins of the namespace.
func (c *Config) PolicyID() string {
	return c.Ditto.Namespace + ":" + c.Ditto.PolicyName
}

// TenantCredentials returns the credentials used for thing and policy calls.
func (c *Config) TenantCredentials() Credentials {
	return Credentials{Username: c.Ditto.Tenant.Username, Password: c.Ditto.Tenant.Password}
}

// OperatorCredentials returns the credentials used for connection management.
func (c *Config) OperatorCredentials() Credentials {
	return Credentials{Username: c.Ditto.Operator.Username, Password: c.Ditto.Operator.Password}
}

// SimulatorFiles holds the local certificate paths of one simulated device.
type SimulatorFiles struct {
	CACertificate     string
	ClientCertificate string
	ClientKey         string
}

// SimulatorFiles renders the simulator path templates for deviceID.
func (c *Config) SimulatorFiles(deviceID string) SimulatorFiles {
	return SimulatorFiles{
		CACertificate:     devicePath(c.Simulator.CACertificate, deviceID),
		ClientCertificate: devicePath(c.Simulator.ClientCertificate, deviceID),
		ClientKey:         devicePath(c.Simulator.ClientKey, deviceID),
	}
}

// CheckSimulatorFiles fails when two of deviceIDs would use the same client
// certificate or key file. The CA certificate may be shared.
func (c *Config) CheckSimulatorFiles(deviceIDs []string) error {
	owners := make(map[string]string, 2*len(deviceIDs))
	for _, deviceID := range deviceIDs {
		files := c.SimulatorFiles(deviceID)
		for _, path := range []string{files.ClientCertificate, files.ClientKey} {
			if owner, ok := owners[path]; ok && owner != deviceID {
				return fmt.Errorf("%w: %s is used by %s and %s", ErrSharedCertificate, path, owner, deviceID)
			}
			owners[path] = deviceID
		}
	}
	return nil
}

// devicePath renders a path template holding at most one %s verb.
func devicePath(template, deviceID string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, deviceID)
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
