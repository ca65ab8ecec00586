package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iotp2c/ditto-twin/internal/constants"
	"github.com/iotp2c/ditto-twin/internal/models"
	"github.com/iotp2c/ditto-twin/pkg/ditto"
)

// PolicyService registers the access policy shared by every twin of the namespace.
type PolicyService struct {
	things   ditto.ThingsAPI
	policyID string
	subject  string
	logger   zerolog.Logger
}

// NewPolicyService creates a new PolicyService for policyID granting subject full access.
func NewPolicyService(things ditto.ThingsAPI, policyID, subject string, logger zerolog.Logger) *PolicyService {
	return &PolicyService{
		things:   things,
		policyID: policyID,
		subject:  subject,
		logger:   logger,
	}
}

// Policy returns the policy document EnsurePolicy writes.
func (s *PolicyService) Policy() models.Policy {
	readWrite := models.Resource{
		Grant:  []string{constants.PermissionRead, constants.PermissionWrite},
		Revoke: []string{},
	}
	return models.Policy{
		Entries: map[string]models.PolicyEntry{
			constants.PolicyEntryOwner: {
				Subjects: map[string]models.Subject{
					s.subject: {Type: constants.SubjectTypeNginx},
				},
				Resources: map[string]models.Resource{
					constants.ResourceThing:   readWrite,
					constants.ResourcePolicy:  readWrite,
					constants.ResourceMessage: readWrite,
				},
			},
		},
	}
}

// EnsurePolicy creates or replaces the policy. Ditto answers 201 on creation and
// 200 on replacement; both are success.
func (s *PolicyService) EnsurePolicy(ctx context.Context) error {
	start := time.Now()

	resp, err := s.things.PutPolicy(ctx, s.policyID, s.Policy())
	if err != nil {
		return fmt.Errorf("failed to put policy %s: %w", s.policyID, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		s.logger.Info().
			Str("policy_id", s.policyID).
			Int("status", resp.StatusCode).
			Dur("took", time.Since(start)).
			Msg("Policy ensured")
		return nil
	default:
		return unexpectedStatus("policy", resp.StatusCode, resp.Body)
	}
}
