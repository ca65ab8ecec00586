package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/iotp2c/ditto-twin/internal/models"
)

// MockCertificateSigner is a mock implementation of the CertificateSigner interface
type MockCertificateSigner struct {
	mock.Mock
}

func (m *MockCertificateSigner) SignClientCertificate(ctx context.Context, deviceID string) (models.CertificateMaterial, error) {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(models.CertificateMaterial), args.Error(1)
}
