package service_registry

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (f *fakeService) Start() error {
	*f.events = append(*f.events, "start "+f.name)
	return f.startErr
}

func (f *fakeService) Stop() error {
	*f.events = append(*f.events, "stop "+f.name)
	return f.stopErr
}

func TestServiceRegistry_StartStopOrder(t *testing.T) {
	var events []string
	sr := NewServiceRegistry(zerolog.Nop())
	sr.RegisterService("iwatch1", &fakeService{name: "iwatch1", events: &events})
	sr.RegisterService("iwatch2", &fakeService{name: "iwatch2", events: &events})
	sr.RegisterService("iwatch1", &fakeService{name: "duplicate", events: &events})

	require.Equal(t, 2, sr.Len())
	require.NoError(t, sr.StartServices())
	require.NoError(t, sr.StopServices())

	assert.Equal(t, []string{"start iwatch1", "start iwatch2", "stop iwatch2", "stop iwatch1"}, events)
}

func TestServiceRegistry_StartFailureRollsBack(t *testing.T) {
	var events []string
	sr := NewServiceRegistry(zerolog.Nop())
	sr.RegisterService("iwatch1", &fakeService{name: "iwatch1", events: &events})
	sr.RegisterService("iwatch2", &fakeService{name: "iwatch2", startErr: errors.New("boom"), events: &events})
	sr.RegisterService("iwatch3", &fakeService{name: "iwatch3", events: &events})

	err := sr.StartServices()
	assert.ErrorContains(t, err, "iwatch2")
	assert.Equal(t, []string{"start iwatch1", "start iwatch2", "stop iwatch1"}, events)
}

func TestServiceRegistry_StopJoinsErrors(t *testing.T) {
	var events []string
	errA := errors.New("a")
	errB := errors.New("b")
	sr := NewServiceRegistry(zerolog.Nop())
	sr.RegisterService("a", &fakeService{name: "a", stopErr: errA, events: &events})
	sr.RegisterService("b", &fakeService{name: "b", stopErr: errB, events: &events})

	err := sr.StopServices()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}
