package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryLeads(ctx context.Context, dbID string, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreateLead(ctx context.Context, dbID string, props notionapi.Properties) (notionapi.PageID, error) {
	args := m.Called(ctx, dbID, props)
	return args.Get(0).(notionapi.PageID), args.Error(1)
}

func (m *MockClient) UpdateLead(ctx context.Context, pageID notionapi.PageID, props notionapi.Properties) error {
	args := m.Called(ctx, pageID, props)
	return args.Error(0)
}

// fakeDatabases and fakePages embed the service interfaces so only the
// methods under test need bodies.
type fakeDatabases struct {
	notionapi.DatabaseService
	dbID notionapi.DatabaseID
	req  *notionapi.DatabaseQueryRequest
	err  error
}

func (f *fakeDatabases) Query(_ context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.dbID, f.req = id, req
	if f.err != nil {
		return nil, f.err
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

type fakePages struct {
	notionapi.PageService
	created *notionapi.PageCreateRequest
	updated notionapi.PageID
	err     error
}

func (f *fakePages) Create(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &notionapi.Page{ID: "page-1"}, nil
}

func (f *fakePages) Update(_ context.Context, id notionapi.PageID, _ *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	f.updated = id
	if f.err != nil {
		return nil, f.err
	}
	return &notionapi.Page{ID: notionapi.ObjectID(id)}, nil
}

func TestNewClient(t *testing.T) {
	var c Client = NewClient("test-token")
	assert.NotNil(t, c)
}

func TestQueryLeads_FiltersOnEmail(t *testing.T) {
	dbs := &fakeDatabases{}
	c := newClient(dbs, &fakePages{}, WithRateLimit(0), WithPageSize(25))

	_, err := c.QueryLeads(context.Background(), "db", "cursor-2")
	require.NoError(t, err)

	assert.Equal(t, notionapi.DatabaseID("db"), dbs.dbID)
	assert.Equal(t, notionapi.Cursor("cursor-2"), dbs.req.StartCursor)
	assert.Equal(t, 25, dbs.req.PageSize)
	pf, ok := dbs.req.Filter.(notionapi.PropertyFilter)
	require.True(t, ok)
	assert.Equal(t, PropEmail, pf.Property)
	assert.True(t, pf.RichText.IsNotEmpty)
}

func TestQueryLeads_Error(t *testing.T) {
	c := newClient(&fakeDatabases{err: assert.AnError}, &fakePages{}, WithRateLimit(0))
	_, err := c.QueryLeads(context.Background(), "db", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: query leads in db")
}

func TestCreateLead_SetsDatabaseParent(t *testing.T) {
	pages := &fakePages{}
	c := newClient(&fakeDatabases{}, pages, WithRateLimit(0))

	id, err := c.CreateLead(context.Background(), "db", LeadRow{Name: "Ada", Email: "ada@acme.com"}.Properties())
	require.NoError(t, err)
	assert.Equal(t, notionapi.PageID("page-1"), id)
	assert.Equal(t, notionapi.ParentTypeDatabaseID, pages.created.Parent.Type)
	assert.Equal(t, notionapi.DatabaseID("db"), pages.created.Parent.DatabaseID)
	assert.Contains(t, pages.created.Properties, PropEmail)
}

func TestUpdateLead(t *testing.T) {
	pages := &fakePages{}
	c := newClient(&fakeDatabases{}, pages, WithRateLimit(0))
	require.NoError(t, c.UpdateLead(context.Background(), "page-9", notionapi.Properties{}))
	assert.Equal(t, notionapi.PageID("page-9"), pages.updated)

	pages.err = assert.AnError
	err := c.UpdateLead(context.Background(), "page-9", notionapi.Properties{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: update lead page page-9")
}

func TestOptions(t *testing.T) {
	c := newClient(nil, nil)
	assert.NotNil(t, c.limiter)
	assert.Equal(t, defaultPageSize, c.pageSize)

	c = newClient(nil, nil, WithRateLimit(10), WithPageSize(500))
	assert.NotNil(t, c.limiter)
	assert.Equal(t, defaultPageSize, c.pageSize, "out of range page size ignored")

	c = newClient(nil, nil, WithRateLimit(0))
	assert.Nil(t, c.limiter)
	assert.NoError(t, c.wait(context.Background()))
}

func TestWait_CancelledContext(t *testing.T) {
	c := newClient(nil, nil, WithRateLimit(0.001))
	assert.NoError(t, c.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.wait(ctx))
}
