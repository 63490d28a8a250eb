package export

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/pkg/notion"
	"github.com/sells-group/lead-cli/pkg/salesforce"
)

type fakeNotion struct {
	existing map[string]string // email -> page id
	queryErr error
	created  []notionapi.Properties
	updated  []notionapi.PageID
	queries  int
}

func (f *fakeNotion) QueryLeads(_ context.Context, _ string, _ notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var pages []notionapi.Page
	for email, id := range f.existing {
		pages = append(pages, notionapi.Page{
			ID: notionapi.ObjectID(id),
			Properties: notionapi.Properties{
				notion.PropEmail: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: email}}},
			},
		})
	}
	return &notionapi.DatabaseQueryResponse{Results: pages}, nil
}

func (f *fakeNotion) CreateLead(_ context.Context, _ string, props notionapi.Properties) (notionapi.PageID, error) {
	f.created = append(f.created, props)
	return "new", nil
}

func (f *fakeNotion) UpdateLead(_ context.Context, pageID notionapi.PageID, _ notionapi.Properties) error {
	f.updated = append(f.updated, pageID)
	return nil
}

type fakeSalesforce struct {
	inserted []map[string]any
}

func (f *fakeSalesforce) Query(context.Context, string, any) error { return nil }

func (f *fakeSalesforce) InsertCollection(_ context.Context, _ string, records []map[string]any) ([]salesforce.CollectionResult, error) {
	f.inserted = append(f.inserted, records...)
	out := make([]salesforce.CollectionResult, len(records))
	for i := range out {
		out[i].Success = true
	}
	return out, nil
}

func (f *fakeSalesforce) UpdateCollection(context.Context, string, []salesforce.CollectionRecord) ([]salesforce.CollectionResult, error) {
	return nil, nil
}

func sampleLeads() []company.Lead {
	return []company.Lead{
		{CompanyName: "Acme", Domain: "acme.com", LikelihoodScore: 9, Contact: company.Contact{Name: "Ada Lovelace", Email: "ada@acme.com"}, Status: company.StatusValid},
		{CompanyName: "Acme", Domain: "acme.com", Contact: company.Contact{Name: "No Email"}},
		{CompanyName: "Globex", Contact: company.Contact{Name: "Hank", Email: "hank@globex.com"}, Status: company.StatusValid},
	}
}

func TestNotionSink_Push(t *testing.T) {
	fn := &fakeNotion{existing: map[string]string{"hank@globex.com": "page-hank"}}
	sink := NewNotionSink(fn, "db")
	assert.Equal(t, "notion", sink.Name())

	res, err := sink.Push(context.Background(), sampleLeads())
	require.NoError(t, err)
	assert.Equal(t, SinkResult{Created: 1, Updated: 1, Skipped: 1}, res)
	assert.Equal(t, 1, fn.queries, "existing leads are indexed once per batch")
	require.Len(t, fn.created, 1)
	assert.Equal(t, []notionapi.PageID{"page-hank"}, fn.updated)
}

func TestNotionSink_IndexFailureAborts(t *testing.T) {
	fn := &fakeNotion{queryErr: assert.AnError}
	_, err := NewNotionSink(fn, "db").Push(context.Background(), sampleLeads())
	require.Error(t, err)
	assert.Empty(t, fn.created)
}

func TestNotionSink_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewNotionSink(&fakeNotion{}, "db").Push(ctx, sampleLeads())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSalesforceSink_Push(t *testing.T) {
	fs := &fakeSalesforce{}
	sink := NewSalesforceSink(fs, "")
	assert.Equal(t, "salesforce", sink.Name())

	res, err := sink.Push(context.Background(), sampleLeads())
	require.NoError(t, err)
	assert.Equal(t, SinkResult{Created: 2, Skipped: 1}, res)

	require.Len(t, fs.inserted, 2)
	assert.Equal(t, "Ada", fs.inserted[0]["FirstName"])
	assert.Equal(t, "Lovelace", fs.inserted[0]["LastName"])
	assert.Equal(t, "https://acme.com", fs.inserted[0]["Website"])
	assert.NotContains(t, fs.inserted[1], "Website")
}
