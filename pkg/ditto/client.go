// Package ditto is a small HTTP client for the Eclipse Ditto API. Tenant and
// operator access are separate client types so that the privilege boundary
// between managing twins and managing connections shows up in the types.
package ditto

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CorrelationIDHeader is the Ditto header used to trace a request through the cluster.
const CorrelationIDHeader = "correlation-id"

// Credentials is a basic-auth username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Response is the raw outcome of a Ditto call. Interpreting the status code is
// left to the caller because each operation accepts a different set.
type Response struct {
	StatusCode int
	Body       []byte
}

// client carries what both capability-scoped clients share.
type client struct {
	baseURL    *url.URL
	httpClient *http.Client
	creds      Credentials
	logger     zerolog.Logger
}

func newClient(baseURL string, creds Credentials, timeout time.Duration, logger zerolog.Logger) (*client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ditto base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ditto base url %q: missing scheme or host", baseURL)
	}

	return &client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
		logger:     logger,
	}, nil
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawPath = ""
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	req.Header.Set(CorrelationIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Ditto request completed")

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
