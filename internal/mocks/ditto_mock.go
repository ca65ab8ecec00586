package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/iotp2c/ditto-twin/pkg/ditto"
)

// MockDevOpsAPI is a mock implementation of the ditto DevOpsAPI interface
type MockDevOpsAPI struct {
	mock.Mock
}

func (m *MockDevOpsAPI) PiggybackConnectivity(ctx context.Context, command any) (*ditto.Response, error) {
	args := m.Called(ctx, command)
	if resp := args.Get(0); resp != nil {
		return resp.(*ditto.Response), args.Error(1)
	}
	return nil, args.Error(1)
}
