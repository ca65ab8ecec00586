package mqtt_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotp2c/ditto-twin/internal/mocks"
	"github.com/iotp2c/ditto-twin/pkg/mqtt"
)

type keyPair struct {
	certPEM []byte
	keyPEM  []byte
}

func selfSigned(t *testing.T, cn string) keyPair {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return keyPair{
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}
}

func TestNewTLSConfig(t *testing.T) {
	ca := selfSigned(t, "CA")
	client := selfSigned(t, "iwatch")

	cfg, err := mqtt.NewTLSConfig(ca.certPEM, client.certPEM, client.keyPEM, false)
	require.NoError(t, err)

	assert.NotNil(t, cfg.RootCAs)
	require.Len(t, cfg.Certificates, 1)
	assert.False(t, cfg.InsecureSkipVerify)
}

func TestNewTLSConfig_InvalidCA(t *testing.T) {
	client := selfSigned(t, "iwatch")

	_, err := mqtt.NewTLSConfig([]byte("not a certificate"), client.certPEM, client.keyPEM, false)
	assert.Error(t, err)
}

func TestNewTLSConfig_MismatchedKey(t *testing.T) {
	ca := selfSigned(t, "CA")
	client := selfSigned(t, "iwatch")
	other := selfSigned(t, "other")

	_, err := mqtt.NewTLSConfig(ca.certPEM, client.certPEM, other.keyPEM, false)
	assert.Error(t, err)
}

func TestMqttService_Initialize_MissingFile(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadFileRaw", "certs/ca.crt").Return(nil, errors.New("no such file"))

	s := mqtt.NewMqttService(fileClient, zerolog.Nop())

	err := s.Initialize("ssl://localhost:8883", "iwatch-1", mqtt.TLSFiles{
		CACertificate:     "certs/ca.crt",
		ClientCertificate: "certs/client.crt",
		ClientKey:         "certs/client.key",
	})
	assert.ErrorContains(t, err, "failed to read CA certificate")
}

func TestMqttService_Initialize_BadKeyPair(t *testing.T) {
	ca := selfSigned(t, "CA")
	client := selfSigned(t, "iwatch")
	other := selfSigned(t, "other")

	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadFileRaw", "certs/ca.crt").Return(ca.certPEM, nil)
	fileClient.On("ReadFileRaw", "certs/client.crt").Return(client.certPEM, nil)
	fileClient.On("ReadFileRaw", "certs/client.key").Return(other.keyPEM, nil)

	s := mqtt.NewMqttService(fileClient, zerolog.Nop())

	err := s.Initialize("ssl://localhost:8883", "iwatch-1", mqtt.TLSFiles{
		CACertificate:     "certs/ca.crt",
		ClientCertificate: "certs/client.crt",
		ClientKey:         "certs/client.key",
	})
	assert.ErrorContains(t, err, "failed to load client key pair")
}
