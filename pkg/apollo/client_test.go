package apollo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/resilience"
)

func TestEnrichOrganization_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/organizations/enrich", r.URL.Path)
		assert.Equal(t, "acme.com", r.URL.Query().Get("domain"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organization":{"id":"org-1","name":"Acme","primary_domain":"acme.com","estimated_num_employees":120}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	org, err := client.EnrichOrganization(context.Background(), "acme.com")

	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "org-1", org.ID)
	assert.Equal(t, 120, org.EstimatedNumEmployee)
}

func TestEnrichOrganization_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	org, err := client.EnrichOrganization(context.Background(), "unknown.example")

	require.NoError(t, err)
	assert.Nil(t, org)
}

func TestEnrichOrganization_EmptyDomain(t *testing.T) {
	_, err := NewClient("k").EnrichOrganization(context.Background(), "")
	assert.Error(t, err)
}

func TestEnrichOrganization_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad", WithBaseURL(srv.URL))
	_, err := client.EnrichOrganization(context.Background(), "acme.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSearchPeople_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/mixed_people/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body PeopleSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"org-1"}, body.OrganizationIDs)
		assert.Equal(t, []string{"Chief Financial Officer"}, body.PersonTitles)
		assert.Equal(t, 2, body.Page)

		_ = json.NewEncoder(w).Encode(PeopleSearchResponse{
			People: []Person{
				{ID: "p1", Name: "Jane Doe", Title: "CFO", Email: "jane@acme.com"},
			},
			Pagination: Pagination{Page: 2, TotalPages: 2},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.SearchPeople(context.Background(), PeopleSearchRequest{
		OrganizationIDs: []string{"org-1"},
		PersonTitles:    []string{"Chief Financial Officer"},
		Page:            2,
	})

	require.NoError(t, err)
	require.Len(t, resp.People, 1)
	assert.Equal(t, "jane@acme.com", resp.People[0].Email)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
}

func TestSearchPeople_DefaultsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body PeopleSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1, body.Page)
		_, _ = w.Write([]byte(`{"people":[]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.SearchPeople(context.Background(), PeopleSearchRequest{OrganizationIDs: []string{"org-1"}})

	require.NoError(t, err)
	assert.Empty(t, resp.People)
}

func TestSearchPeople_RequiresOrganization(t *testing.T) {
	_, err := NewClient("k").SearchPeople(context.Background(), PeopleSearchRequest{})
	assert.Error(t, err)
}

func TestSearchPeople_RetriesRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"people":[{"id":"p1"}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL),
		WithRetry(resilience.Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond}))
	resp, err := client.SearchPeople(context.Background(), PeopleSearchRequest{OrganizationIDs: []string{"org-1"}})

	require.NoError(t, err)
	assert.Len(t, resp.People, 1)
	assert.Equal(t, 2, calls)
}
