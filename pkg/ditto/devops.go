package ditto

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const piggybackConnectivityPath = "/devops/piggyback/connectivity"

// DevOpsAPI is the operator-scoped part of the Ditto HTTP API.
type DevOpsAPI interface {
	PiggybackConnectivity(ctx context.Context, command any) (*Response, error)
}

// DevOpsClient implements DevOpsAPI with operator credentials.
type DevOpsClient struct {
	*client
	piggybackTimeout time.Duration
}

// NewDevOpsClient creates a client for piggyback commands authenticated with
// operator credentials. piggybackTimeout is forwarded to Ditto as the command timeout.
func NewDevOpsClient(baseURL string, operator Credentials, timeout, piggybackTimeout time.Duration, logger zerolog.Logger) (*DevOpsClient, error) {
	c, err := newClient(baseURL, operator, timeout, logger.With().Str("scope", "operator").Logger())
	if err != nil {
		return nil, err
	}
	return &DevOpsClient{client: c, piggybackTimeout: piggybackTimeout}, nil
}

// PiggybackConnectivity sends a piggyback command to the connectivity service.
func (c *DevOpsClient) PiggybackConnectivity(ctx context.Context, command any) (*Response, error) {
	query := url.Values{}
	if seconds := int(c.piggybackTimeout / time.Second); seconds > 0 {
		query.Set("timeout", strconv.Itoa(seconds))
	}
	return c.do(ctx, http.MethodPost, piggybackConnectivityPath, query, command)
}
