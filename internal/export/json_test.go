package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/company"
)

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "merged.json")
	in := []company.CompanyRecord{{Name: "Acme", Domain: "acme.com", SourceTags: []string{"places"}}}

	require.NoError(t, WriteJSON(path, in))

	var out []company.CompanyRecord
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)
}

func TestLoadRecords_Fallbacks(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, []company.CompanyRecord{}, LoadRecords(filepath.Join(dir, "missing.json")))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	assert.Equal(t, []company.CompanyRecord{}, LoadRecords(bad))

	null := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(null, []byte("null"), 0o644))
	assert.NotNil(t, LoadRecords(null))
}

func TestLoadRawSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkedin.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"company_name":"Acme","website":"https://www.acme.com","employee_count":"120"}]`), 0o644))

	got := LoadRawSource(path, company.SourceLinkedIn)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)

	assert.Empty(t, LoadRawSource(filepath.Join(dir, "missing.json"), company.SourceLinkedIn))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not":"an array"}`), 0o644))
	assert.Empty(t, LoadRawSource(bad, company.SourceLinkedIn))
}
