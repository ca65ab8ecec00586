package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/iotp2c/ditto-twin/internal/models"
	"github.com/iotp2c/ditto-twin/pkg/ditto"
)

// TwinOutcome tells whether a twin was created by the call or found in place.
// Calls that fail return TwinFailed.
type TwinOutcome int

const (
	TwinFailed TwinOutcome = iota
	TwinCreated
	TwinAlreadyExists
)

func (o TwinOutcome) String() string {
	switch o {
	case TwinFailed:
		return "failed"
	case TwinCreated:
		return "created"
	case TwinAlreadyExists:
		return "already_exists"
	default:
		return fmt.Sprintf("TwinOutcome(%d)", int(o))
	}
}

// TwinService manages the Ditto thing backing a device.
type TwinService struct {
	things    ditto.ThingsAPI
	namespace string
	policyID  string
	logger    zerolog.Logger
}

// NewTwinService creates a new TwinService. Twins are created in namespace and
// bound to policyID.
func NewTwinService(things ditto.ThingsAPI, namespace, policyID string, logger zerolog.Logger) *TwinService {
	return &TwinService{
		things:    things,
		namespace: namespace,
		policyID:  policyID,
		logger:    logger,
	}
}

// Exists reports whether the device already has a twin.
func (s *TwinService) Exists(ctx context.Context, deviceID string) (bool, error) {
	id, err := newIdentity(s.namespace, deviceID)
	if err != nil {
		return false, err
	}

	resp, err := s.things.GetThing(ctx, id.ThingID())
	if err != nil {
		return false, fmt.Errorf("failed to get thing %s: %w", id.ThingID(), err)
	}
	return resp.StatusCode == http.StatusOK, nil
}

// EnsureTwin creates the twin unless one exists. An existing twin is left
// untouched even if its definition differs.
func (s *TwinService) EnsureTwin(ctx context.Context, deviceID, definition string) (TwinOutcome, error) {
	id, err := newIdentity(s.namespace, deviceID)
	if err != nil {
		return TwinFailed, err
	}
	logger := s.logger.With().Str("thing_id", id.ThingID()).Logger()

	exists, err := s.Exists(ctx, deviceID)
	if err != nil {
		return TwinFailed, err
	}
	if exists {
		logger.Info().Msg("Twin already exists")
		return TwinAlreadyExists, nil
	}

	start := time.Now()
	resp, err := s.things.PutThing(ctx, id.ThingID(), models.Thing{
		PolicyID:   s.policyID,
		Definition: definition,
	})
	if err != nil {
		return TwinFailed, fmt.Errorf("failed to put thing %s: %w", id.ThingID(), err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		logger.Info().
			Str("definition", definition).
			Dur("took", time.Since(start)).
			Msg("Twin created")
		return TwinCreated, nil
	default:
		return TwinFailed, unexpectedStatus("twin", resp.StatusCode, resp.Body)
	}
}

// DeleteTwin deletes the twin. It returns false without error when there was no
// twin to delete.
func (s *TwinService) DeleteTwin(ctx context.Context, deviceID string) (bool, error) {
	id, err := newIdentity(s.namespace, deviceID)
	if err != nil {
		return false, err
	}

	resp, err := s.things.DeleteThing(ctx, id.ThingID())
	if err != nil {
		return false, fmt.Errorf("failed to delete thing %s: %w", id.ThingID(), err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		s.logger.Info().Str("thing_id", id.ThingID()).Msg("Twin deleted")
		return true, nil
	case http.StatusNotFound:
		s.logger.Info().Str("thing_id", id.ThingID()).Msg("Twin not found, nothing to delete")
		return false, nil
	default:
		return false, unexpectedStatus("untwin", resp.StatusCode, resp.Body)
	}
}

// Status returns the twin as stored by Ditto.
func (s *TwinService) Status(ctx context.Context, deviceID string) (json.RawMessage, error) {
	id, err := newIdentity(s.namespace, deviceID)
	if err != nil {
		return nil, err
	}

	resp, err := s.things.GetThing(ctx, id.ThingID())
	if err != nil {
		return nil, fmt.Errorf("failed to get thing %s: %w", id.ThingID(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("status", resp.StatusCode, resp.Body)
	}
	return json.RawMessage(resp.Body), nil
}
