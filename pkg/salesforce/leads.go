package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// LeadSource is stamped on every lead this tool creates.
const LeadSource = "Lead Generation Pipeline"

// Lead is the subset of a Salesforce Lead record used for upserts.
type Lead struct {
	ID        string `json:"Id" salesforce:"Id"`
	FirstName string `json:"FirstName" salesforce:"FirstName"`
	LastName  string `json:"LastName" salesforce:"LastName"`
	Company   string `json:"Company" salesforce:"Company"`
	Title     string `json:"Title" salesforce:"Title"`
	Email     string `json:"Email" salesforce:"Email"`
	Website   string `json:"Website" salesforce:"Website"`
}

// Fields returns the writable field map of l.
func (l Lead) Fields() map[string]any {
	f := map[string]any{
		"LastName":   l.LastName,
		"Company":    l.Company,
		"Email":      l.Email,
		"LeadSource": LeadSource,
	}
	if l.FirstName != "" {
		f["FirstName"] = l.FirstName
	}
	if l.Title != "" {
		f["Title"] = l.Title
	}
	if l.Website != "" {
		f["Website"] = l.Website
	}
	return f
}

// UpsertResult counts the outcome of UpsertLeads.
type UpsertResult struct {
	Created int
	Updated int
	Failed  int
	Errors  []string
}

// SplitName splits a full name into first and last name. Salesforce requires
// a last name, so a single word becomes the last name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", "Unknown"
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

// FindLeadIDsByEmail returns a lower-cased email to record ID map for the
// leads of sObject that already exist.
func FindLeadIDsByEmail(ctx context.Context, c Client, sObject string, emails []string) (map[string]string, error) {
	ids := make(map[string]string)
	for start := 0; start < len(emails); start += maxBatchSize {
		end := min(start+maxBatchSize, len(emails))

		quoted := make([]string, 0, end-start)
		for _, e := range emails[start:end] {
			quoted = append(quoted, "'"+escapeSoql(e)+"'")
		}
		soql := fmt.Sprintf("SELECT Id, Email FROM %s WHERE Email IN (%s)", sObject, strings.Join(quoted, ", "))

		var found []Lead
		if err := c.Query(ctx, soql, &found); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("sf: find %s by email", sObject))
		}
		for _, l := range found {
			ids[strings.ToLower(l.Email)] = l.ID
		}
	}
	return ids, nil
}

// UpsertLeads creates leads whose email is not yet in Salesforce and updates
// the rest, in batches of 200.
func UpsertLeads(ctx context.Context, c Client, sObject string, leads []Lead) (*UpsertResult, error) {
	result := &UpsertResult{}
	if len(leads) == 0 {
		return result, nil
	}

	emails := make([]string, len(leads))
	for i, l := range leads {
		emails[i] = l.Email
	}
	existing, err := FindLeadIDsByEmail(ctx, c, sObject, emails)
	if err != nil {
		return nil, err
	}

	var inserts []map[string]any
	var updates []CollectionRecord
	for _, l := range leads {
		if id, ok := existing[strings.ToLower(l.Email)]; ok {
			updates = append(updates, CollectionRecord{ID: id, Fields: l.Fields()})
			continue
		}
		inserts = append(inserts, l.Fields())
	}

	for start := 0; start < len(inserts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(inserts))
		res, err := c.InsertCollection(ctx, sObject, inserts[start:end])
		if err != nil {
			return result, eris.Wrap(err, fmt.Sprintf("sf: insert leads batch %d-%d", start, end))
		}
		result.tally(res, &result.Created)
	}

	for start := 0; start < len(updates); start += maxBatchSize {
		end := min(start+maxBatchSize, len(updates))
		res, err := c.UpdateCollection(ctx, sObject, updates[start:end])
		if err != nil {
			return result, eris.Wrap(err, fmt.Sprintf("sf: update leads batch %d-%d", start, end))
		}
		result.tally(res, &result.Updated)
	}

	return result, nil
}

func (r *UpsertResult) tally(res []CollectionResult, ok *int) {
	for _, cr := range res {
		if cr.Success {
			*ok++
			continue
		}
		r.Failed++
		r.Errors = append(r.Errors, cr.Errors...)
	}
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
