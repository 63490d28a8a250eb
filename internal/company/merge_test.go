package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestMerge_PriorityPrecedence(t *testing.T) {
	high := Source{Name: "linkedin", Priority: 1, Records: []CompanyRecord{
		{Name: "X Corp", Domain: "x.com", Industry: strPtr("Tech")},
	}}
	low := Source{Name: "places", Priority: 2, Records: []CompanyRecord{
		{Name: "X Corporation", Domain: "x.com", Industry: strPtr("Finance"), EmployeeCount: intPtr(80)},
	}}

	got := Merge(low, high)
	require.Len(t, got, 1)
	assert.Equal(t, "x.com", got[0].Domain)
	assert.Equal(t, "X Corp", got[0].Name)
	assert.Equal(t, "Tech", *got[0].Industry)
	require.NotNil(t, got[0].EmployeeCount)
	assert.Equal(t, 80, *got[0].EmployeeCount)
	assert.Equal(t, []string{"linkedin", "places"}, got[0].SourceTags)
}

func TestMerge_Idempotent(t *testing.T) {
	a := []CompanyRecord{
		{Name: "Acme", Website: "https://www.acme.com", Industry: strPtr("Manufacturing")},
		{Name: "Beta", Website: "https://beta.io/about", EmployeeCount: intPtr(120)},
		{Name: "No Site Co"},
	}

	once := Merge(Source{Name: "places", Priority: 1, Records: a})
	twice := Merge(
		Source{Name: "places", Priority: 1, Records: a},
		Source{Name: "places", Priority: 2, Records: a},
	)
	assert.Equal(t, once, twice)

	again := Merge(Source{Name: "places", Priority: 1, Records: once})
	assert.Equal(t, once, again)
}

func TestMerge_DuplicateWithinSource(t *testing.T) {
	got := Merge(Source{Name: "places", Priority: 1, Records: []CompanyRecord{
		{Name: "Acme", Website: "https://acme.com"},
		{Name: "Acme HQ", Website: "https://www.ACME.com/contact", Address: strPtr("1 Main St")},
	}})

	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)
	assert.Equal(t, "https://acme.com", got[0].Website)
	require.NotNil(t, got[0].Address)
	assert.Equal(t, "1 Main St", *got[0].Address)
}

func TestMerge_NeverOverwritesSetField(t *testing.T) {
	got := Merge(
		Source{Name: "a", Priority: 1, Records: []CompanyRecord{
			{Domain: "acme.com", Name: "Acme", EmployeeCount: intPtr(10), CountryCodes: []string{"US"}},
		}},
		Source{Name: "b", Priority: 2, Records: []CompanyRecord{
			{Domain: "acme.com", Name: "Acme Inc", EmployeeCount: intPtr(999), CountryCodes: []string{"IN"}},
		}},
	)

	require.Len(t, got, 1)
	assert.Equal(t, 10, *got[0].EmployeeCount)
	assert.Equal(t, []string{"US"}, got[0].CountryCodes)
}

func TestMerge_NameFallback(t *testing.T) {
	got := Merge(
		Source{Name: "a", Priority: 1, Records: []CompanyRecord{
			{Name: "Local Shop"},
			{Name: "Acme", Website: "https://acme.com"},
		}},
		Source{Name: "b", Priority: 2, Records: []CompanyRecord{
			{Name: "Local Shop", Phone: strPtr("555-0100")},
			{Name: "Acme"}, // no domain: cannot match the domain-keyed Acme
		}},
	)

	require.Len(t, got, 3)
	assert.Equal(t, "Local Shop", got[0].Name)
	assert.Empty(t, got[0].Domain)
	require.NotNil(t, got[0].Phone)
	assert.Equal(t, "555-0100", *got[0].Phone)
	assert.Equal(t, "acme.com", got[1].Domain)
	assert.Equal(t, "Acme", got[2].Name)
	assert.Empty(t, got[2].Domain)
}

func TestMerge_DropsKeylessRecords(t *testing.T) {
	got := Merge(Source{Name: "a", Priority: 1, Records: []CompanyRecord{
		{Website: "not a url", Industry: strPtr("Tech")},
		{Name: "  "},
		{Name: "Kept"},
	}})

	require.Len(t, got, 1)
	assert.Equal(t, "Kept", got[0].Name)
}

func TestMerge_InsertionOrder(t *testing.T) {
	got := Merge(
		Source{Name: "b", Priority: 2, Records: []CompanyRecord{
			{Name: "Gamma", Domain: "gamma.com"},
			{Name: "Alpha", Domain: "alpha.com"},
		}},
		Source{Name: "a", Priority: 1, Records: []CompanyRecord{
			{Name: "Beta", Domain: "beta.com"},
			{Name: "Alpha", Domain: "alpha.com"},
		}},
	)

	names := make([]string, len(got))
	for i, r := range got {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma"}, names)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge())
	assert.NotNil(t, Merge())
	assert.Empty(t, Merge(Source{Name: "a", Priority: 1}, Source{Name: "b", Priority: 2}))
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := []CompanyRecord{{Name: "Acme", Domain: "acme.com", SourceTags: []string{"seed"}}}
	_ = Merge(
		Source{Name: "a", Priority: 1, Records: in},
		Source{Name: "b", Priority: 2, Records: []CompanyRecord{{Name: "Acme", Domain: "acme.com"}}},
	)
	assert.Equal(t, []string{"seed"}, in[0].SourceTags)
}
