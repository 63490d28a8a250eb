package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Lead database property names.
const (
	PropName    = "Name"
	PropCompany = "Company"
	PropTitle   = "Title"
	PropEmail   = "Email"
	PropWebsite = "Website"
	PropScore   = "Likelihood Score"
	PropStatus  = "Verification"
)

// LeadRow is one lead as stored in the Notion database.
type LeadRow struct {
	Name    string
	Company string
	Title   string
	Email   string
	Website string
	Score   float64
	Status  string
}

// Properties converts the row to Notion page properties. Name is the title
// property; empty text fields are omitted.
func (r LeadRow) Properties() notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{richText(r.Name)},
		},
		PropScore: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: r.Score,
		},
	}
	for k, v := range map[string]string{PropCompany: r.Company, PropTitle: r.Title, PropEmail: r.Email} {
		if v == "" {
			continue
		}
		props[k] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{richText(v)},
		}
	}
	if r.Website != "" {
		props[PropWebsite] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  r.Website,
		}
	}
	if r.Status != "" {
		props[PropStatus] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: r.Status},
		}
	}
	return props
}

// UpsertLead updates the page indexed under the row's email, or creates one
// and adds it to ix. It reports whether a page was created.
func UpsertLead(ctx context.Context, c Client, dbID string, ix LeadIndex, row LeadRow) (bool, error) {
	if row.Email == "" {
		return false, eris.New("notion: lead email is required")
	}

	if id, ok := ix.Lookup(row.Email); ok {
		if err := c.UpdateLead(ctx, id, row.Properties()); err != nil {
			return false, eris.Wrapf(err, "notion: update lead %s", row.Email)
		}
		return false, nil
	}

	id, err := c.CreateLead(ctx, dbID, row.Properties())
	if err != nil {
		return false, eris.Wrapf(err, "notion: create lead %s", row.Email)
	}
	ix.add(row.Email, id)
	return true, nil
}

func richText(s string) notionapi.RichText {
	return notionapi.RichText{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}
}
