package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/iotp2c/ditto-twin/pkg/container"
)

// MockRuntime is a mock implementation of the container Runtime interface
type MockRuntime struct {
	mock.Mock
}

func (m *MockRuntime) Exec(ctx context.Context, name string, cmd []string) (container.ExecResult, error) {
	args := m.Called(ctx, name, cmd)
	return args.Get(0).(container.ExecResult), args.Error(1)
}

func (m *MockRuntime) ReadFile(ctx context.Context, name, path string) ([]byte, error) {
	args := m.Called(ctx, name, path)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRuntime) WriteFile(ctx context.Context, name, path string, data []byte) error {
	args := m.Called(ctx, name, path, data)
	return args.Error(0)
}

func (m *MockRuntime) ContainerIP(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockRuntime) Restart(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
