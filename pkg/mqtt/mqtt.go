package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/iotp2c/ditto-twin/pkg/file"
)

// ErrConnectTimeout is returned when the broker does not acknowledge the connection in time.
var ErrConnectTimeout = errors.New("timed out connecting to mqtt broker")

// MQTTClient defines the interface for an MQTT client.
type MQTTClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// TLSFiles points at the PEM files a device authenticates to the broker with.
type TLSFiles struct {
	CACertificate      string
	ClientCertificate  string
	ClientKey          string
	InsecureSkipVerify bool
}

// MqttService provides methods for MQTT operations.
type MqttService struct {
	client         MQTTClient
	fileClient     file.FileOperations
	logger         zerolog.Logger
	connectTimeout time.Duration
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(fileClient file.FileOperations, logger zerolog.Logger) *MqttService {
	return &MqttService{
		fileClient:     fileClient,
		logger:         logger,
		connectTimeout: 30 * time.Second,
	}
}

// NewTLSConfig builds a mutual-TLS configuration: the broker is verified against
// caPEM and the client presents certPEM/keyPEM.
func NewTLSConfig(caPEM, certPEM, keyPEM []byte, insecureSkipVerify bool) (*tls.Config, error) {
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("failed to append CA certificate")
	}

	clientCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load client key pair: %w", err)
	}

	return &tls.Config{
		RootCAs:            caCertPool,
		Certificates:       []tls.Certificate{clientCert},
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecureSkipVerify,
	}, nil
}

// Initialize sets up the MQTT client with mutual TLS and starts the connection.
func (s *MqttService) Initialize(broker, clientID string, files TLSFiles) error {
	caCert, err := s.fileClient.ReadFileRaw(files.CACertificate)
	if err != nil {
		return fmt.Errorf("failed to read CA certificate: %w", err)
	}
	clientCert, err := s.fileClient.ReadFileRaw(files.ClientCertificate)
	if err != nil {
		return fmt.Errorf("failed to read client certificate: %w", err)
	}
	clientKey, err := s.fileClient.ReadFileRaw(files.ClientKey)
	if err != nil {
		return fmt.Errorf("failed to read client key: %w", err)
	}

	tlsConfig, err := NewTLSConfig(caCert, clientCert, clientKey, files.InsecureSkipVerify)
	if err != nil {
		return err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetTLSConfig(tlsConfig)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
	})

	s.client = mqtt.NewClient(opts)

	token := s.Connect()
	if !token.WaitTimeout(s.connectTimeout) {
		return ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", broker, err)
	}

	s.logger.Info().Str("broker", broker).Str("client_id", clientID).Msg("Connected to MQTT broker")
	return nil
}

// Connect connects to the MQTT broker.
func (s *MqttService) Connect() mqtt.Token {
	return s.client.Connect()
}

// Publish sends a message to the specified topic.
func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

// Subscribe subscribes to the specified topic with a message handler.
func (s *MqttService) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return s.client.Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes from the specified topics.
func (s *MqttService) Unsubscribe(topics ...string) mqtt.Token {
	return s.client.Unsubscribe(topics...)
}

// Disconnect gracefully disconnects the MQTT client.
func (s *MqttService) Disconnect(quiesce uint) {
	if s.client != nil {
		s.client.Disconnect(quiesce)
	}
}
