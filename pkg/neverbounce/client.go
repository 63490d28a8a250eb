// Package neverbounce provides a client for the NeverBounce single email
// check endpoint.
package neverbounce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/resilience"
)

const defaultBaseURL = "https://api.neverbounce.com/v4"

// Client verifies email addresses.
type Client interface {
	Check(ctx context.Context, email string) (*CheckResult, error)
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status              string   `json:"status"`
	Result              string   `json:"result"`
	Flags               []string `json:"flags"`
	SuggestedCorrection string   `json:"suggested_correction"`
	Message             string   `json:"message"`
	ExecutionTime       int      `json:"execution_time"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy.
func WithRetry(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.Policy
}

// NewClient creates a NeverBounce client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check verifies a single address. API-level failures (status other than
// "success") are returned as errors.
func (c *httpClient) Check(ctx context.Context, email string) (*CheckResult, error) {
	if email == "" {
		return nil, eris.New("neverbounce: email is required")
	}

	q := url.Values{"key": {c.apiKey}, "email": {email}}
	u := c.baseURL + "/single/check?" + q.Encode()

	return resilience.Do(ctx, c.retry.Named("neverbounce", "single_check"), func(ctx context.Context) (*CheckResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, eris.Wrap(err, "neverbounce: create request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "neverbounce: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckResponse("neverbounce", resp); err != nil {
			return nil, err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "neverbounce: read response")
		}

		var result CheckResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, eris.Wrap(err, "neverbounce: unmarshal response")
		}
		if result.Status != "success" {
			return nil, eris.Errorf("neverbounce: check failed: %s: %s", result.Status, result.Message)
		}
		return &result, nil
	})
}
