package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// LeadIndex maps lowercased emails to the pages that already hold them.
type LeadIndex map[string]notionapi.PageID

// LoadLeadIndex pages through every row of dbID that has an email. When a
// database holds the same email twice the first page wins.
func LoadLeadIndex(ctx context.Context, c Client, dbID string) (LeadIndex, error) {
	ix := LeadIndex{}
	var cursor notionapi.Cursor
	for {
		resp, err := c.QueryLeads(ctx, dbID, cursor)
		if err != nil {
			return nil, eris.Wrap(err, "notion: load lead index")
		}
		for _, p := range resp.Results {
			if email := pageEmail(p); email != "" {
				if _, ok := ix.Lookup(email); !ok {
					ix.add(email, notionapi.PageID(p.ID))
				}
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return ix, nil
		}
		cursor = resp.NextCursor
	}
}

// Lookup returns the page holding email.
func (ix LeadIndex) Lookup(email string) (notionapi.PageID, bool) {
	id, ok := ix[indexKey(email)]
	return id, ok
}

func (ix LeadIndex) add(email string, id notionapi.PageID) {
	ix[indexKey(email)] = id
}

func indexKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// pageEmail reads the Email rich-text property of p.
func pageEmail(p notionapi.Page) string {
	var texts []notionapi.RichText
	switch prop := p.Properties[PropEmail].(type) {
	case *notionapi.RichTextProperty:
		texts = prop.RichText
	case notionapi.RichTextProperty:
		texts = prop.RichText
	default:
		return ""
	}

	var b strings.Builder
	for _, t := range texts {
		switch {
		case t.PlainText != "":
			b.WriteString(t.PlainText)
		case t.Text != nil:
			b.WriteString(t.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}
