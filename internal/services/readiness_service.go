package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iotp2c/ditto-twin/pkg/ditto"
)

// ReadinessService gates provisioning on the Ditto backend answering authenticated reads.
type ReadinessService struct {
	things ditto.ThingsAPI
	logger zerolog.Logger
}

// NewReadinessService creates a new ReadinessService.
func NewReadinessService(things ditto.ThingsAPI, logger zerolog.Logger) *ReadinessService {
	return &ReadinessService{
		things: things,
		logger: logger,
	}
}

// WaitForReady polls the things collection until it answers 200. It performs at
// most maxAttempts attempts separated by a fixed delay and returns false once they
// are exhausted or ctx is done.
func (s *ReadinessService) WaitForReady(ctx context.Context, maxAttempts int, delay time.Duration) bool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempt := 0
	probe := func() error {
		attempt++
		resp, err := s.things.ListThings(ctx)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return nil
	}

	notify := func(err error, next time.Duration) {
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("retry_in", next).
			Msg("Ditto not ready, retrying")
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(maxAttempts-1)),
		ctx,
	)

	start := time.Now()
	if err := backoff.RetryNotify(probe, b, notify); err != nil {
		s.logger.Error().
			Err(err).
			Int("attempts", attempt).
			Dur("took", time.Since(start)).
			Msg("Ditto did not become ready")
		return false
	}

	s.logger.Info().Int("attempts", attempt).Dur("took", time.Since(start)).Msg("Ditto is ready")
	return true
}
