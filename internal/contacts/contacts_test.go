package contacts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/pkg/apollo"
	"github.com/sells-group/lead-cli/pkg/neverbounce"
)

type fakeApollo struct {
	mu       sync.Mutex
	orgs     map[string]*apollo.Organization
	people   map[string][][]apollo.Person // org id -> pages
	orgErr   error
	requests []apollo.PeopleSearchRequest
}

func (f *fakeApollo) EnrichOrganization(_ context.Context, domain string) (*apollo.Organization, error) {
	if f.orgErr != nil {
		return nil, f.orgErr
	}
	return f.orgs[domain], nil
}

func (f *fakeApollo) SearchPeople(_ context.Context, req apollo.PeopleSearchRequest) (*apollo.PeopleSearchResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	pages := f.people[req.OrganizationIDs[0]]
	if req.Page > len(pages) {
		return &apollo.PeopleSearchResponse{}, nil
	}
	return &apollo.PeopleSearchResponse{People: pages[req.Page-1]}, nil
}

type fakeVerifier struct {
	mu      sync.Mutex
	results map[string]string
	errs    map[string]error
	calls   map[string]int
}

func (f *fakeVerifier) Check(_ context.Context, email string) (*neverbounce.CheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[email]++
	if err := f.errs[email]; err != nil {
		return nil, err
	}
	return &neverbounce.CheckResult{Status: "success", Result: f.results[email]}, nil
}

func scored(name, domain string, score float64) company.ScoredCompanyRecord {
	return company.ScoredCompanyRecord{
		CompanyRecord:   company.CompanyRecord{Name: name, Domain: domain},
		LikelihoodScore: score,
	}
}

func TestFindContacts_Paginates(t *testing.T) {
	a := &fakeApollo{
		orgs: map[string]*apollo.Organization{"acme.com": {ID: "org1"}},
		people: map[string][][]apollo.Person{
			"org1": {
				{{Name: "Ada Lovelace", Title: "CFO", Email: "ada@acme.com"}},
				{{FirstName: "Grace", LastName: "Hopper", Title: "VP of Operations"}},
			},
		},
	}
	s := NewService(a, &fakeVerifier{}, Options{Personas: []string{"CFO"}, MaxPages: 5, PerPage: 10})

	got := s.FindContacts(context.Background(), "acme.com")
	require.Len(t, got, 2)
	assert.Equal(t, "Ada Lovelace", got[0].Name)
	assert.Equal(t, "Grace Hopper", got[1].Name)

	// Two pages with people plus the empty page that ends the loop.
	require.Len(t, a.requests, 3)
	assert.Equal(t, []string{"CFO"}, a.requests[0].PersonTitles)
	assert.Equal(t, 10, a.requests[0].PerPage)
}

func TestFindContacts_MaxPages(t *testing.T) {
	a := &fakeApollo{
		orgs: map[string]*apollo.Organization{"acme.com": {ID: "org1"}},
		people: map[string][][]apollo.Person{
			"org1": {{{Name: "One"}}, {{Name: "Two"}}, {{Name: "Three"}}},
		},
	}
	s := NewService(a, &fakeVerifier{}, Options{MaxPages: 2})
	assert.Len(t, s.FindContacts(context.Background(), "acme.com"), 2)
}

func TestFindContacts_UnknownOrgOrError(t *testing.T) {
	s := NewService(&fakeApollo{}, &fakeVerifier{}, Options{})
	assert.Empty(t, s.FindContacts(context.Background(), "nobody.com"))

	s = NewService(&fakeApollo{orgErr: errors.New("401")}, &fakeVerifier{}, Options{})
	assert.Empty(t, s.FindContacts(context.Background(), "acme.com"))
}

func TestVerify(t *testing.T) {
	v := &fakeVerifier{
		results: map[string]string{"ok@acme.com": "valid", "odd@acme.com": "something-new"},
		errs:    map[string]error{"flaky@acme.com": errors.New("timeout")},
	}
	s := NewService(&fakeApollo{}, v, Options{})
	ctx := context.Background()

	assert.Equal(t, company.StatusNotProvided, s.Verify(ctx, "  "))
	assert.Equal(t, company.StatusValid, s.Verify(ctx, "OK@acme.com"))
	assert.Equal(t, company.StatusValid, s.Verify(ctx, "ok@acme.com"))
	assert.Equal(t, 1, v.calls["ok@acme.com"], "second lookup served from cache")

	assert.Equal(t, company.StatusUnknown, s.Verify(ctx, "odd@acme.com"))

	assert.Equal(t, company.StatusError, s.Verify(ctx, "flaky@acme.com"))
	assert.Equal(t, company.StatusError, s.Verify(ctx, "flaky@acme.com"))
	assert.Equal(t, 2, v.calls["flaky@acme.com"], "errors are not cached")
}

func TestFindAndVerify(t *testing.T) {
	a := &fakeApollo{
		orgs: map[string]*apollo.Organization{
			"acme.com":   {ID: "org1"},
			"globex.com": {ID: "org2"},
		},
		people: map[string][][]apollo.Person{
			"org1": {{
				{Name: "Ada", Title: "CFO", Email: "ada@acme.com"},
				{Name: "Bob", Title: "Compliance Officer"},
			}},
			"org2": {{
				{Name: "Hank", Title: "VP of Operations", Email: "hank@globex.com"},
			}},
		},
	}
	v := &fakeVerifier{results: map[string]string{"ada@acme.com": "valid", "hank@globex.com": "invalid"}}
	s := NewService(a, v, Options{Concurrency: 3})

	leads := s.FindAndVerify(context.Background(), []company.ScoredCompanyRecord{
		scored("Acme", "acme.com", 9.5),
		scored("No Domain", "", 8),
		scored("Globex", "globex.com", 7),
	})

	require.Len(t, leads, 3)
	assert.Equal(t, "Acme", leads[0].CompanyName)
	assert.Equal(t, 9.5, leads[0].LikelihoodScore)
	assert.Equal(t, company.StatusValid, leads[0].Status)
	assert.Equal(t, company.StatusNotProvided, leads[1].Status)
	assert.Equal(t, "Globex", leads[2].CompanyName)
	assert.Equal(t, company.StatusInvalid, leads[2].Status)

	valid := ValidLeads(leads)
	require.Len(t, valid, 1)
	assert.Equal(t, "ada@acme.com", valid[0].Email)
}

func TestFindAndVerify_Empty(t *testing.T) {
	s := NewService(&fakeApollo{}, &fakeVerifier{}, Options{})
	assert.Empty(t, s.FindAndVerify(context.Background(), nil))
	assert.Empty(t, ValidLeads(nil))
}
