package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iotp2c/ditto-twin/internal/services"
)

// MockReadinessProber is a mock implementation of the ReadinessProber interface
type MockReadinessProber struct {
	mock.Mock
}

func (m *MockReadinessProber) WaitForReady(ctx context.Context, maxAttempts int, delay time.Duration) bool {
	args := m.Called(ctx, maxAttempts, delay)
	return args.Bool(0)
}

// MockPolicyRegistrar is a mock implementation of the PolicyRegistrar interface
type MockPolicyRegistrar struct {
	mock.Mock
}

func (m *MockPolicyRegistrar) EnsurePolicy(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockTwinRegistrar is a mock implementation of the TwinRegistrar interface
type MockTwinRegistrar struct {
	mock.Mock
}

func (m *MockTwinRegistrar) Exists(ctx context.Context, deviceID string) (bool, error) {
	args := m.Called(ctx, deviceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTwinRegistrar) EnsureTwin(ctx context.Context, deviceID, definition string) (services.TwinOutcome, error) {
	args := m.Called(ctx, deviceID, definition)
	return args.Get(0).(services.TwinOutcome), args.Error(1)
}

func (m *MockTwinRegistrar) DeleteTwin(ctx context.Context, deviceID string) (bool, error) {
	args := m.Called(ctx, deviceID)
	return args.Bool(0), args.Error(1)
}

// MockConnectionProvisioner is a mock implementation of the ConnectionProvisioner interface
type MockConnectionProvisioner struct {
	mock.Mock
}

func (m *MockConnectionProvisioner) EnsureConnection(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *MockConnectionProvisioner) DeleteConnection(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}
