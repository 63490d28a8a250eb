// Package notion writes verified leads into a Notion database.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// defaultPageSize is the largest page the query endpoint returns.
const defaultPageSize = 100

// Client is the subset of the Notion API used by the lead sink.
type Client interface {
	// QueryLeads returns one page of database rows that carry an email,
	// starting after cursor ("" for the first page).
	QueryLeads(ctx context.Context, dbID string, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error)
	CreateLead(ctx context.Context, dbID string, props notionapi.Properties) (notionapi.PageID, error)
	UpdateLead(ctx context.Context, pageID notionapi.PageID, props notionapi.Properties) error
}

// Option configures the client returned by NewClient.
type Option func(*client)

// WithRateLimit throttles API calls to rps requests per second. rps <= 0
// disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithPageSize sets the number of rows fetched per query (1-100).
func WithPageSize(n int) Option {
	return func(c *client) {
		if n > 0 && n <= defaultPageSize {
			c.pageSize = n
		}
	}
}

type client struct {
	databases notionapi.DatabaseService
	pages     notionapi.PageService
	limiter   *rate.Limiter
	pageSize  int
}

// NewClient returns a Client authenticated with an integration token.
// Calls are throttled to 3 req/s unless WithRateLimit says otherwise.
func NewClient(token string, opts ...Option) Client {
	api := notionapi.NewClient(notionapi.Token(token))
	return newClient(api.Database, api.Page, opts...)
}

func newClient(databases notionapi.DatabaseService, pages notionapi.PageService, opts ...Option) *client {
	c := &client{
		databases: databases,
		pages:     pages,
		limiter:   rate.NewLimiter(3, 1),
		pageSize:  defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return eris.Wrap(c.limiter.Wait(ctx), "notion: rate limit")
}

func (c *client) QueryLeads(ctx context.Context, dbID string, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.databases.Query(ctx, notionapi.DatabaseID(dbID), &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropEmail,
			RichText: &notionapi.TextFilterCondition{IsNotEmpty: true},
		},
		StartCursor: cursor,
		PageSize:    c.pageSize,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query leads in %s", dbID)
	}
	return resp, nil
}

func (c *client) CreateLead(ctx context.Context, dbID string, props notionapi.Properties) (notionapi.PageID, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	page, err := c.pages.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", eris.Wrapf(err, "notion: create lead in %s", dbID)
	}
	return notionapi.PageID(page.ID), nil
}

func (c *client) UpdateLead(ctx context.Context, pageID notionapi.PageID, props notionapi.Properties) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.pages.Update(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		return eris.Wrapf(err, "notion: update lead page %s", pageID)
	}
	return nil
}
