package ditto

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	thingsPath   = "/api/2/things"
	policiesPath = "/api/2/policies"
)

// ThingsAPI is the tenant-scoped part of the Ditto HTTP API: things and policies.
type ThingsAPI interface {
	ListThings(ctx context.Context) (*Response, error)
	GetThing(ctx context.Context, thingID string) (*Response, error)
	PutThing(ctx context.Context, thingID string, thing any) (*Response, error)
	DeleteThing(ctx context.Context, thingID string) (*Response, error)
	PutPolicy(ctx context.Context, policyID string, policy any) (*Response, error)
}

// ThingsClient implements ThingsAPI with tenant credentials.
type ThingsClient struct {
	*client
}

// NewThingsClient creates a client for thing and policy calls authenticated with tenant credentials.
func NewThingsClient(baseURL string, tenant Credentials, timeout time.Duration, logger zerolog.Logger) (*ThingsClient, error) {
	c, err := newClient(baseURL, tenant, timeout, logger.With().Str("scope", "tenant").Logger())
	if err != nil {
		return nil, err
	}
	return &ThingsClient{client: c}, nil
}

// ListThings reads the things collection. Ditto answers 200 only once the
// gateway, things and policies services are all up, which makes it the readiness probe.
func (c *ThingsClient) ListThings(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, thingsPath, nil, nil)
}

// GetThing retrieves a single thing.
func (c *ThingsClient) GetThing(ctx context.Context, thingID string) (*Response, error) {
	return c.do(ctx, http.MethodGet, thingsPath+"/"+thingID, nil, nil)
}

// PutThing creates or replaces a thing.
func (c *ThingsClient) PutThing(ctx context.Context, thingID string, thing any) (*Response, error) {
	return c.do(ctx, http.MethodPut, thingsPath+"/"+thingID, nil, thing)
}

// DeleteThing deletes a thing.
func (c *ThingsClient) DeleteThing(ctx context.Context, thingID string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, thingsPath+"/"+thingID, nil, nil)
}

// PutPolicy creates or replaces a policy.
func (c *ThingsClient) PutPolicy(ctx context.Context, policyID string, policy any) (*Response, error) {
	return c.do(ctx, http.MethodPut, policiesPath+"/"+policyID, nil, policy)
}
