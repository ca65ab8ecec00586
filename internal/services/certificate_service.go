package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/iotp2c/ditto-twin/internal/constants"
	"github.com/iotp2c/ditto-twin/internal/models"
	"github.com/iotp2c/ditto-twin/internal/utils"
	"github.com/iotp2c/ditto-twin/pkg/certs"
	"github.com/iotp2c/ditto-twin/pkg/container"
	"github.com/iotp2c/ditto-twin/pkg/identity"
)

const (
	extServerAuth = "serverAuth"
	extClientAuth = "clientAuth"
)

var opensslConfTemplate = template.Must(template.New("openssl.cnf").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`[ req ]
distinguished_name = req_distinguished_name
req_extensions     = v3_req
prompt             = no

[ req_distinguished_name ]
CN = {{ .CommonName }}

[ v3_req ]
basicConstraints = CA:FALSE
keyUsage         = digitalSignature, keyEncipherment
extendedKeyUsage = {{ .ExtendedKeyUsage }}
subjectAltName   = @alt_names

[ alt_names ]
{{- range $i, $dns := .DNSNames }}
DNS.{{ inc $i }} = {{ $dns }}
{{- end }}
{{- range $i, $ip := .IPAddresses }}
IP.{{ inc $i }} = {{ $ip }}
{{- end }}
`))

type opensslConf struct {
	CommonName       string
	ExtendedKeyUsage string
	DNSNames         []string
	IPAddresses      []string
}

func renderOpenSSLConf(conf opensslConf) ([]byte, error) {
	var buf bytes.Buffer
	if err := opensslConfTemplate.Execute(&buf, conf); err != nil {
		return nil, fmt.Errorf("failed to render openssl config: %w", err)
	}
	return buf.Bytes(), nil
}

// CertificateService issues device client certificates signed by the CA that
// lives in the broker container.
type CertificateService struct {
	runtime container.Runtime
	config  *utils.Config
	logger  zerolog.Logger
}

// NewCertificateService creates a new CertificateService.
func NewCertificateService(runtime container.Runtime, config *utils.Config, logger zerolog.Logger) *CertificateService {
	return &CertificateService{
		runtime: runtime,
		config:  config,
		logger:  logger,
	}
}

func (s *CertificateService) subject(commonName string) string {
	pki := s.config.PKI
	return fmt.Sprintf("/C=%s/ST=%s/L=%s/O=%s/OU=%s/CN=%s",
		pki.Country, pki.State, pki.City, pki.Organization, pki.OrgUnit, commonName)
}

func (s *CertificateService) brokerPath(name string) string {
	return path.Join(s.config.Broker.ConfigDir, name)
}

func (s *CertificateService) devicePath(name string) string {
	return path.Join(s.config.Device.ConfigDir, name)
}

// SignClientCertificate generates a key pair and CSR in the device container,
// signs the CSR with the broker CA and returns the CA certificate, the signed
// client certificate and the client key as flattened PEM bodies. The CA and
// client certificates are also copied back into the device container.
func (s *CertificateService) SignClientCertificate(ctx context.Context, deviceID string) (models.CertificateMaterial, error) {
	id, err := newIdentity(s.config.Ditto.Namespace, deviceID)
	if err != nil {
		return models.CertificateMaterial{}, err
	}

	start := time.Now()
	device := id.ContainerName(s.config.Device.ContainerTemplate)
	broker := s.config.Broker.Container
	logger := s.logger.With().Str("device_id", deviceID).Str("device_container", device).Logger()

	conf, err := renderOpenSSLConf(opensslConf{
		CommonName:       deviceID,
		ExtendedKeyUsage: extClientAuth,
		DNSNames:         []string{deviceID},
	})
	if err != nil {
		return models.CertificateMaterial{}, err
	}

	// Key pair and CSR are generated where the key is used.
	if err := s.runtime.WriteFile(ctx, device, s.devicePath(constants.OpenSSLConfFile), conf); err != nil {
		return models.CertificateMaterial{}, signingFailed("write device openssl config", err)
	}
	if _, err := container.MustExec(ctx, s.runtime, device, []string{
		"openssl", "req", "-new", "-nodes",
		"-newkey", "rsa:2048",
		"-keyout", s.devicePath(constants.ClientKeyFile),
		"-out", s.devicePath(constants.ClientCSRFile),
		"-subj", s.subject(deviceID),
		"-config", s.devicePath(constants.OpenSSLConfFile),
	}); err != nil {
		return models.CertificateMaterial{}, signingFailed("generate client csr", err)
	}
	csr, err := s.runtime.ReadFile(ctx, device, s.devicePath(constants.ClientCSRFile))
	if err != nil {
		return models.CertificateMaterial{}, signingFailed("read client csr", err)
	}
	logger.Debug().Msg("Client CSR generated")

	// The CA key never leaves the broker container.
	csrPath := s.brokerPath(deviceID + ".csr")
	confPath := s.brokerPath(deviceID + ".cnf")
	certPath := s.brokerPath(deviceID + ".crt")
	if err := s.runtime.WriteFile(ctx, broker, csrPath, csr); err != nil {
		return models.CertificateMaterial{}, signingFailed("copy csr to broker", err)
	}
	if err := s.runtime.WriteFile(ctx, broker, confPath, conf); err != nil {
		return models.CertificateMaterial{}, signingFailed("copy openssl config to broker", err)
	}
	if _, err := container.MustExec(ctx, s.runtime, broker, []string{
		"openssl", "x509", "-req",
		"-in", csrPath,
		"-CA", s.brokerPath(constants.CACertFile),
		"-CAkey", s.brokerPath(constants.CAKeyFile),
		"-CAcreateserial",
		"-out", certPath,
		"-days", strconv.Itoa(s.config.PKI.ValidityDays),
		"-extensions", "v3_req",
		"-extfile", confPath,
	}); err != nil {
		return models.CertificateMaterial{}, signingFailed("sign client certificate", err)
	}

	caCert, err := s.runtime.ReadFile(ctx, broker, s.brokerPath(constants.CACertFile))
	if err != nil {
		return models.CertificateMaterial{}, signingFailed("read ca certificate", err)
	}
	clientCert, err := s.runtime.ReadFile(ctx, broker, certPath)
	if err != nil {
		return models.CertificateMaterial{}, signingFailed("read client certificate", err)
	}
	clientKey, err := s.runtime.ReadFile(ctx, device, s.devicePath(constants.ClientKeyFile))
	if err != nil {
		return models.CertificateMaterial{}, signingFailed("read client key", err)
	}

	if err := s.runtime.WriteFile(ctx, device, s.devicePath(constants.CACertFile), caCert); err != nil {
		return models.CertificateMaterial{}, signingFailed("copy ca certificate to device", err)
	}
	if err := s.runtime.WriteFile(ctx, device, s.devicePath(constants.ClientCertFile), clientCert); err != nil {
		return models.CertificateMaterial{}, signingFailed("copy client certificate to device", err)
	}

	logger.Info().Dur("took", time.Since(start)).Msg("Client certificate signed")

	return models.CertificateMaterial{
		CACert:     certs.Flatten(string(caCert)),
		ClientCert: certs.Flatten(string(clientCert)),
		ClientKey:  certs.Flatten(string(clientKey)),
	}, nil
}

// DeviceMaterial reads the certificate material last installed in the device
// container, flattened like the material SignClientCertificate returns.
func (s *CertificateService) DeviceMaterial(ctx context.Context, deviceID string) (models.CertificateMaterial, error) {
	id, err := newIdentity(s.config.Ditto.Namespace, deviceID)
	if err != nil {
		return models.CertificateMaterial{}, err
	}
	device := id.ContainerName(s.config.Device.ContainerTemplate)

	var material models.CertificateMaterial
	for name, dst := range map[string]*string{
		constants.CACertFile:     &material.CACert,
		constants.ClientCertFile: &material.ClientCert,
		constants.ClientKeyFile:  &material.ClientKey,
	} {
		data, err := s.runtime.ReadFile(ctx, device, s.devicePath(name))
		if err != nil {
			return models.CertificateMaterial{}, fmt.Errorf("failed to read %s from %s: %w", name, device, err)
		}
		*dst = certs.Flatten(string(data))
	}
	return material, nil
}

// BootstrapBroker creates the broker CA (unless one exists) and a server
// certificate for the broker, then restarts the broker so it picks them up.
func (s *CertificateService) BootstrapBroker(ctx context.Context) error {
	start := time.Now()
	broker := s.config.Broker.Container
	logger := s.logger.With().Str("broker_container", broker).Logger()

	if s.config.PKI.InstallOpenSSL {
		if _, err := container.MustExec(ctx, s.runtime, broker, []string{"apk", "add", "--no-cache", "openssl"}); err != nil {
			return signingFailed("install openssl", err)
		}
	}

	exists, err := s.runtime.Exec(ctx, broker, []string{"test", "-f", s.brokerPath(constants.CACertFile)})
	if err != nil {
		return signingFailed("check ca certificate", err)
	}
	if exists.ExitCode == 0 {
		logger.Info().Msg("Broker CA already exists, keeping it")
	} else {
		if _, err := container.MustExec(ctx, s.runtime, broker, []string{
			"openssl", "req", "-new", "-x509", "-nodes",
			"-days", strconv.Itoa(s.config.PKI.ValidityDays),
			"-extensions", "v3_ca",
			"-keyout", s.brokerPath(constants.CAKeyFile),
			"-out", s.brokerPath(constants.CACertFile),
			"-subj", s.subject(s.config.PKI.CACommonName),
		}); err != nil {
			return signingFailed("create ca", err)
		}
		logger.Info().Msg("Broker CA created")
	}

	serverConf := opensslConf{
		CommonName:       s.config.PKI.ServerCommonName,
		ExtendedKeyUsage: extServerAuth,
		DNSNames:         []string{broker, "localhost"},
		IPAddresses:      []string{"127.0.0.1"},
	}
	if ip, err := s.runtime.ContainerIP(ctx, broker); err == nil {
		serverConf.IPAddresses = append(serverConf.IPAddresses, ip)
	} else if !errors.Is(err, container.ErrNoAddress) {
		return signingFailed("resolve broker address", err)
	}

	conf, err := renderOpenSSLConf(serverConf)
	if err != nil {
		return err
	}
	if err := s.runtime.WriteFile(ctx, broker, s.brokerPath(constants.OpenSSLConfFile), conf); err != nil {
		return signingFailed("write broker openssl config", err)
	}

	if _, err := container.MustExec(ctx, s.runtime, broker, []string{
		"openssl", "req", "-new", "-nodes",
		"-out", s.brokerPath(constants.ServerCSRFile),
		"-keyout", s.brokerPath(constants.ServerKeyFile),
		"-subj", s.subject(s.config.PKI.ServerCommonName),
		"-config", s.brokerPath(constants.OpenSSLConfFile),
	}); err != nil {
		return signingFailed("generate server csr", err)
	}
	if _, err := container.MustExec(ctx, s.runtime, broker, []string{
		"openssl", "x509", "-req",
		"-in", s.brokerPath(constants.ServerCSRFile),
		"-CA", s.brokerPath(constants.CACertFile),
		"-CAkey", s.brokerPath(constants.CAKeyFile),
		"-CAcreateserial",
		"-out", s.brokerPath(constants.ServerCertFile),
		"-days", strconv.Itoa(s.config.PKI.ValidityDays),
		"-extensions", "v3_req",
		"-extfile", s.brokerPath(constants.OpenSSLConfFile),
	}); err != nil {
		return signingFailed("sign server certificate", err)
	}

	if err := s.runtime.Restart(ctx, broker); err != nil {
		return fmt.Errorf("failed to restart broker: %w", err)
	}

	logger.Info().Dur("took", time.Since(start)).Msg("Broker certificates created and broker restarted")
	return nil
}

func signingFailed(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSigningFailed, step, err)
}

func newIdentity(namespace, deviceID string) (identity.Identity, error) {
	id, err := identity.New(namespace, deviceID)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", ErrInvalidDevice, err)
	}
	return id, nil
}
