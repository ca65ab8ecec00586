package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// State is a step of the twinning workflow.
type State int

const (
	StateNotStarted State = iota
	StateWaitingForBackend
	StatePolicyEnsured
	StateTwinEnsured
	StateConnectionEnsured
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateWaitingForBackend:
		return "waiting_for_backend"
	case StatePolicyEnsured:
		return "policy_ensured"
	case StateTwinEnsured:
		return "twin_ensured"
	case StateConnectionEnsured:
		return "connection_ensured"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ReadinessProber reports whether the backend accepts requests.
type ReadinessProber interface {
	WaitForReady(ctx context.Context, maxAttempts int, delay time.Duration) bool
}

// PolicyRegistrar ensures the shared access policy exists.
type PolicyRegistrar interface {
	EnsurePolicy(ctx context.Context) error
}

// TwinRegistrar manages the twin of a device.
type TwinRegistrar interface {
	Exists(ctx context.Context, deviceID string) (bool, error)
	EnsureTwin(ctx context.Context, deviceID, definition string) (TwinOutcome, error)
	DeleteTwin(ctx context.Context, deviceID string) (bool, error)
}

// ConnectionProvisioner manages the broker connection of a device.
type ConnectionProvisioner interface {
	EnsureConnection(ctx context.Context, deviceID string) error
	DeleteConnection(ctx context.Context, deviceID string) error
}

// ReadinessOptions bounds the backend readiness probe run before twinning.
type ReadinessOptions struct {
	MaxAttempts int
	Delay       time.Duration
}

// TwinningService runs the twin and untwin workflows for one device at a time.
type TwinningService struct {
	readiness   ReadinessProber
	policies    PolicyRegistrar
	twins       TwinRegistrar
	connections ConnectionProvisioner
	options     ReadinessOptions
	logger      zerolog.Logger
}

// NewTwinningService creates a new TwinningService.
func NewTwinningService(readiness ReadinessProber, policies PolicyRegistrar, twins TwinRegistrar,
	connections ConnectionProvisioner, options ReadinessOptions, logger zerolog.Logger) *TwinningService {

	return &TwinningService{
		readiness:   readiness,
		policies:    policies,
		twins:       twins,
		connections: connections,
		options:     options,
		logger:      logger,
	}
}

type workflow struct {
	state  State
	logger zerolog.Logger
}

func (w *workflow) transition(to State) {
	w.logger.Info().Stringer("from", w.state).Stringer("to", to).Msg("Twinning state changed")
	w.state = to
}

// Twin provisions a device: policy, twin and connection. A device that already
// has a twin is reported as TwinAlreadyExists and nothing is created; its
// connection is not checked or repaired.
func (s *TwinningService) Twin(ctx context.Context, deviceID, definition string) (TwinOutcome, error) {
	start := time.Now()
	w := &workflow{
		state:  StateNotStarted,
		logger: s.logger.With().Str("device_id", deviceID).Logger(),
	}

	w.transition(StateWaitingForBackend)
	if !s.readiness.WaitForReady(ctx, s.options.MaxAttempts, s.options.Delay) {
		w.transition(StateAborted)
		return TwinFailed, ErrBackendUnavailable
	}

	exists, err := s.twins.Exists(ctx, deviceID)
	if err != nil {
		w.transition(StateAborted)
		return TwinFailed, err
	}
	if exists {
		w.logger.Info().Msg("Device is already twinned")
		return TwinAlreadyExists, nil
	}

	if err := s.policies.EnsurePolicy(ctx); err != nil {
		w.transition(StateAborted)
		return TwinFailed, err
	}
	w.transition(StatePolicyEnsured)

	outcome, err := s.twins.EnsureTwin(ctx, deviceID, definition)
	if err != nil {
		w.transition(StateAborted)
		return TwinFailed, err
	}
	w.transition(StateTwinEnsured)
	if outcome == TwinAlreadyExists {
		// Created concurrently between the existence check and now.
		return TwinAlreadyExists, nil
	}

	if err := s.connections.EnsureConnection(ctx, deviceID); err != nil {
		w.transition(StateAborted)
		return TwinFailed, err
	}
	w.transition(StateConnectionEnsured)

	w.logger.Info().Dur("took", time.Since(start)).Msg("Device twinned")
	return TwinCreated, nil
}

// Untwin deletes the device's twin and connection. The shared policy is kept.
func (s *TwinningService) Untwin(ctx context.Context, deviceID string) error {
	start := time.Now()
	logger := s.logger.With().Str("device_id", deviceID).Logger()

	deleted, err := s.twins.DeleteTwin(ctx, deviceID)
	if err != nil {
		return err
	}
	if !deleted {
		logger.Info().Msg("Device had no twin")
	}

	if err := s.connections.DeleteConnection(ctx, deviceID); err != nil {
		return err
	}

	logger.Info().Dur("took", time.Since(start)).Msg("Device untwinned")
	return nil
}
