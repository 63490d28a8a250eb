// Package google wraps the Places API (New) Text Search and Place Details
// endpoints used for company discovery.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// MaxPageSize is the largest page the Text Search endpoint returns.
const MaxPageSize = 20

const (
	searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.websiteUri," +
		"places.nationalPhoneNumber,places.rating,places.primaryTypeDisplayName," +
		"places.addressComponents,nextPageToken"
	detailsFieldMask = "id,displayName,formattedAddress,websiteUri,nationalPhoneNumber,rating"
)

// Client performs Google Places API operations.
type Client interface {
	SearchText(ctx context.Context, req SearchTextRequest) (*SearchTextResponse, error)
	GetPlace(ctx context.Context, placeID string) (*Place, error)
}

// SearchTextRequest is a single Text Search page request.
type SearchTextRequest struct {
	TextQuery string `json:"textQuery"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// SearchTextResponse is one page of Text Search results.
type SearchTextResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// Place is a place returned by Text Search or Place Details.
type Place struct {
	ID                     string             `json:"id"`
	DisplayName            LocalizedText      `json:"displayName"`
	FormattedAddress       string             `json:"formattedAddress,omitempty"`
	WebsiteURI             string             `json:"websiteUri,omitempty"`
	NationalPhoneNumber    string             `json:"nationalPhoneNumber,omitempty"`
	Rating                 float64            `json:"rating,omitempty"`
	PrimaryTypeDisplayName *LocalizedText     `json:"primaryTypeDisplayName,omitempty"`
	AddressComponents      []AddressComponent `json:"addressComponents,omitempty"`
}

// LocalizedText is a text value with its language code.
type LocalizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// AddressComponent is a structured part of a place's address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// CountryCode returns the ISO country code from the address components.
func (p Place) CountryCode() string {
	for _, c := range p.AddressComponents {
		for _, t := range c.Types {
			if t == "country" {
				return strings.ToUpper(c.ShortText)
			}
		}
	}
	return ""
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

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchText(ctx context.Context, req SearchTextRequest) (*SearchTextResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	var result SearchTextResponse
	err = c.do(ctx, "search_text", func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Goog-FieldMask", searchFieldMask)
		return r, nil
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) GetPlace(ctx context.Context, placeID string) (*Place, error) {
	if placeID == "" {
		return nil, eris.New("google: place id is required")
	}

	var result Place
	err := c.do(ctx, "get_place", func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(placeID), nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("X-Goog-FieldMask", detailsFieldMask)
		return r, nil
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// do sends the request built by newReq with retries and decodes a 2xx body
// into out.
func (c *httpClient) do(ctx context.Context, op string, newReq func(context.Context) (*http.Request, error), out any) error {
	return resilience.Run(ctx, c.retry.Named("google", op), func(ctx context.Context) error {
		req, err := newReq(ctx)
		if err != nil {
			return eris.Wrap(err, "google: create request")
		}
		req.Header.Set("X-Goog-Api-Key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "google: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckResponse("google", resp); err != nil {
			return err
		}

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "google: read response")
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "google: unmarshal response")
		}
		return nil
	})
}
