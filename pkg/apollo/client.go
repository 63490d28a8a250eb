// Package apollo provides a client for the Apollo.io organization enrich and
// people search endpoints.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/resilience"
)

const defaultBaseURL = "https://api.apollo.io"

// Client performs Apollo.io API operations.
type Client interface {
	EnrichOrganization(ctx context.Context, domain string) (*Organization, error)
	SearchPeople(ctx context.Context, req PeopleSearchRequest) (*PeopleSearchResponse, error)
}

// Organization is the subset of an enriched organization we use.
type Organization struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	WebsiteURL           string `json:"website_url"`
	PrimaryDomain        string `json:"primary_domain"`
	Industry             string `json:"industry"`
	EstimatedNumEmployee int    `json:"estimated_num_employees"`
}

type enrichResponse struct {
	Organization *Organization `json:"organization"`
}

// PeopleSearchRequest is one page of a people search.
type PeopleSearchRequest struct {
	OrganizationIDs []string `json:"q_organization_ids"`
	PersonTitles    []string `json:"person_titles,omitempty"`
	Page            int      `json:"page"`
	PerPage         int      `json:"per_page,omitempty"`
}

// PeopleSearchResponse is one page of people search results.
type PeopleSearchResponse struct {
	People     []Person   `json:"people"`
	Pagination Pagination `json:"pagination"`
}

// Person is a contact returned by people search.
type Person struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Title          string `json:"title"`
	Email          string `json:"email"`
	LinkedInURL    string `json:"linkedin_url"`
	OrganizationID string `json:"organization_id"`
}

// Pagination describes the search result window.
type Pagination struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	TotalEntries int `json:"total_entries"`
	TotalPages   int `json:"total_pages"`
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

// NewClient creates an Apollo.io client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		retry: resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// EnrichOrganization looks up an organization by domain. It returns nil
// without error when Apollo knows no organization for the domain.
func (c *httpClient) EnrichOrganization(ctx context.Context, domain string) (*Organization, error) {
	if domain == "" {
		return nil, eris.New("apollo: domain is required")
	}

	u := c.baseURL + "/api/v1/organizations/enrich?" + url.Values{"domain": {domain}}.Encode()

	var result enrichResponse
	err := c.do(ctx, "enrich_organization", func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Organization == nil || result.Organization.ID == "" {
		return nil, nil
	}
	return result.Organization, nil
}

func (c *httpClient) SearchPeople(ctx context.Context, req PeopleSearchRequest) (*PeopleSearchResponse, error) {
	if len(req.OrganizationIDs) == 0 {
		return nil, eris.New("apollo: at least one organization id is required")
	}
	if req.Page < 1 {
		req.Page = 1
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: marshal request")
	}

	var result PeopleSearchResponse
	err = c.do(ctx, "people_search", func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/mixed_people/search", bytes.NewReader(body))
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) do(ctx context.Context, op string, newReq func(context.Context) (*http.Request, error), out any) error {
	return resilience.Run(ctx, c.retry.Named("apollo", op), func(ctx context.Context) error {
		req, err := newReq(ctx)
		if err != nil {
			return eris.Wrap(err, "apollo: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "apollo: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckResponse("apollo", resp); err != nil {
			return err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "apollo: read response")
		}
		if err := json.Unmarshal(data, out); err != nil {
			return eris.Wrap(err, "apollo: unmarshal response")
		}
		return nil
	})
}
