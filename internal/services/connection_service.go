package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iotp2c/ditto-twin/internal/constants"
	"github.com/iotp2c/ditto-twin/internal/models"
	"github.com/iotp2c/ditto-twin/internal/utils"
	"github.com/iotp2c/ditto-twin/pkg/certs"
	"github.com/iotp2c/ditto-twin/pkg/container"
	"github.com/iotp2c/ditto-twin/pkg/ditto"
	"github.com/iotp2c/ditto-twin/pkg/identity"
)

// CertificateSigner issues the client certificate a connection authenticates with.
type CertificateSigner interface {
	SignClientCertificate(ctx context.Context, deviceID string) (models.CertificateMaterial, error)
}

// ConnectionService provisions the Ditto MQTT connection of a device through
// the devops piggyback API.
type ConnectionService struct {
	devops  ditto.DevOpsAPI
	runtime container.Runtime
	signer  CertificateSigner
	config  *utils.Config
	logger  zerolog.Logger
}

// NewConnectionService creates a new ConnectionService.
func NewConnectionService(devops ditto.DevOpsAPI, runtime container.Runtime, signer CertificateSigner,
	config *utils.Config, logger zerolog.Logger) *ConnectionService {

	return &ConnectionService{
		devops:  devops,
		runtime: runtime,
		signer:  signer,
		config:  config,
		logger:  logger,
	}
}

// ResolveBrokerAddress polls the broker container until it reports a network
// address, for at most broker.resolve_timeout.
func (s *ConnectionService) ResolveBrokerAddress(ctx context.Context) (string, error) {
	broker := s.config.Broker.Container

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.Broker.ResolveInterval
	b.Multiplier = 1
	b.RandomizationFactor = 0
	b.MaxInterval = s.config.Broker.ResolveInterval
	b.MaxElapsedTime = s.config.Broker.ResolveTimeout

	attempt := 0
	address, err := backoff.RetryNotifyWithData(func() (string, error) {
		attempt++
		ip, err := s.runtime.ContainerIP(ctx, broker)
		if err != nil && !errors.Is(err, container.ErrNoAddress) {
			return "", backoff.Permanent(err)
		}
		return ip, err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		s.logger.Warn().
			Err(err).
			Str("broker_container", broker).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("Broker has no address yet, retrying")
	})
	if err != nil {
		if errors.Is(err, container.ErrNoAddress) {
			return "", fmt.Errorf("%w: %s has no address after %s", ErrBrokerUnavailable, broker, s.config.Broker.ResolveTimeout)
		}
		return "", fmt.Errorf("failed to resolve broker address: %w", err)
	}

	s.logger.Debug().Str("broker_container", broker).Str("address", address).Msg("Broker address resolved")
	return address, nil
}

// BuildConnection assembles the connection descriptor binding the device's
// command topic to its twin and the twin's events back to the device.
func (s *ConnectionService) BuildConnection(id identity.Identity, brokerAddress string, material models.CertificateMaterial) models.Connection {
	uri := url.URL{
		Scheme: s.config.Broker.Scheme,
		User:   url.UserPassword(s.config.Broker.Username, s.config.Broker.Password),
		Host:   net.JoinHostPort(brokerAddress, strconv.Itoa(s.config.Broker.Port)),
	}
	authorization := []string{s.config.Ditto.Subject}

	return models.Connection{
		ID:                   id.ConnectionID(),
		ConnectionType:       constants.ConnectionTypeMQTT,
		ConnectionStatus:     constants.ConnectionOpen,
		FailoverEnabled:      true,
		URI:                  uri.String(),
		ValidateCertificates: true,
		CA:                   certs.Envelope(certs.TypeCertificate, material.CACert),
		Credentials: models.ConnectionCredentials{
			Type: constants.CredentialsClient,
			Cert: certs.Envelope(certs.TypeCertificate, material.ClientCert),
			Key:  certs.Envelope(certs.TypePrivateKey, material.ClientKey),
		},
		Sources: []models.Source{{
			Addresses:            []string{id.CommandTopic()},
			AuthorizationContext: authorization,
			QOS:                  0,
			Filters:              []string{},
		}},
		Targets: []models.Target{{
			Address:              id.EventTopic(),
			Topics:               []string{constants.TwinEventsTopic, constants.LiveMessagesTopic},
			AuthorizationContext: authorization,
			QOS:                  0,
		}},
	}
}

// EnsureConnection resolves the broker, issues a fresh client certificate and
// creates the device's MQTT connection in Ditto.
func (s *ConnectionService) EnsureConnection(ctx context.Context, deviceID string) error {
	id, err := newIdentity(s.config.Ditto.Namespace, deviceID)
	if err != nil {
		return err
	}
	start := time.Now()

	address, err := s.ResolveBrokerAddress(ctx)
	if err != nil {
		return err
	}

	material, err := s.signer.SignClientCertificate(ctx, deviceID)
	if err != nil {
		return err
	}

	connection := s.BuildConnection(id, address, material)
	resp, err := s.devops.PiggybackConnectivity(ctx, models.PiggybackRequest{
		TargetActorSelection: constants.ConnectionActorSelection,
		Headers:              models.PiggybackHeaders{Aggregate: false},
		PiggybackCommand: models.PiggybackCommand{
			Type:       constants.CreateConnectionCommand,
			Connection: &connection,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create connection %s: %w", id.ConnectionID(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus("connection", resp.StatusCode, resp.Body)
	}

	s.logger.Info().
		Str("connection_id", id.ConnectionID()).
		Str("broker_address", address).
		Dur("took", time.Since(start)).
		Msg("Connection created")
	return nil
}

// DeleteConnection deletes the device's MQTT connection. A connection that does
// not exist counts as deleted.
func (s *ConnectionService) DeleteConnection(ctx context.Context, deviceID string) error {
	id, err := newIdentity(s.config.Ditto.Namespace, deviceID)
	if err != nil {
		return err
	}

	resp, err := s.devops.PiggybackConnectivity(ctx, models.PiggybackRequest{
		TargetActorSelection: constants.ConnectionActorSelection,
		Headers:              models.PiggybackHeaders{Aggregate: false},
		PiggybackCommand: models.PiggybackCommand{
			Type:         constants.DeleteConnectionCommand,
			ConnectionID: id.ConnectionID(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete connection %s: %w", id.ConnectionID(), err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		s.logger.Info().Str("connection_id", id.ConnectionID()).Msg("Connection deleted")
		return nil
	case http.StatusNotFound:
		s.logger.Info().Str("connection_id", id.ConnectionID()).Msg("Connection not found, nothing to delete")
		return nil
	default:
		return unexpectedStatus("connection", resp.StatusCode, resp.Body)
	}
}
