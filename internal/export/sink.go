package export

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/pkg/notion"
	"github.com/sells-group/lead-cli/pkg/salesforce"
)

// SinkResult counts what a Sink did with a batch of leads.
type SinkResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Sink pushes verified leads to an external system.
type Sink interface {
	Name() string
	Push(ctx context.Context, leads []company.Lead) (SinkResult, error)
}

// NotionSink upserts leads into a Notion database keyed by email.
type NotionSink struct {
	client notion.Client
	dbID   string
}

// NewNotionSink creates a NotionSink.
func NewNotionSink(c notion.Client, dbID string) *NotionSink {
	return &NotionSink{client: c, dbID: dbID}
}

// Name implements Sink.
func (s *NotionSink) Name() string { return "notion" }

// Push implements Sink. Existing rows are indexed by email once per batch.
// Leads without email are skipped; per-lead failures are logged and counted.
// Only an index failure or context cancellation aborts the batch.
func (s *NotionSink) Push(ctx context.Context, leads []company.Lead) (SinkResult, error) {
	var res SinkResult
	if err := ctx.Err(); err != nil {
		return res, err
	}
	ix, err := notion.LoadLeadIndex(ctx, s.client, s.dbID)
	if err != nil {
		return res, err
	}
	zap.L().Info("export: notion lead index loaded", zap.Int("existing", len(ix)))

	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if l.Email == "" {
			res.Skipped++
			continue
		}

		created, err := notion.UpsertLead(ctx, s.client, s.dbID, ix, notion.LeadRow{
			Name:    l.Name,
			Company: l.CompanyName,
			Title:   l.Title,
			Email:   l.Email,
			Website: websiteFor(l),
			Score:   l.LikelihoodScore,
			Status:  string(l.Status),
		})
		switch {
		case err != nil:
			zap.L().Warn("export: notion upsert failed", zap.String("email", l.Email), zap.Error(err))
			res.Failed++
		case created:
			res.Created++
		default:
			res.Updated++
		}
	}
	return res, nil
}

// SalesforceSink upserts leads as Salesforce Lead records keyed by email.
type SalesforceSink struct {
	client  salesforce.Client
	sObject string
}

// NewSalesforceSink creates a SalesforceSink writing to sObject ("Lead" when
// empty).
func NewSalesforceSink(c salesforce.Client, sObject string) *SalesforceSink {
	if sObject == "" {
		sObject = "Lead"
	}
	return &SalesforceSink{client: c, sObject: sObject}
}

// Name implements Sink.
func (s *SalesforceSink) Name() string { return "salesforce" }

// Push implements Sink.
func (s *SalesforceSink) Push(ctx context.Context, leads []company.Lead) (SinkResult, error) {
	var res SinkResult
	var batch []salesforce.Lead
	for _, l := range leads {
		if l.Email == "" {
			res.Skipped++
			continue
		}
		first, last := salesforce.SplitName(l.Name)
		batch = append(batch, salesforce.Lead{
			FirstName: first,
			LastName:  last,
			Company:   l.CompanyName,
			Title:     l.Title,
			Email:     l.Email,
			Website:   websiteFor(l),
		})
	}

	up, err := salesforce.UpsertLeads(ctx, s.client, s.sObject, batch)
	if up != nil {
		res.Created, res.Updated, res.Failed = up.Created, up.Updated, up.Failed
		for _, msg := range up.Errors {
			zap.L().Warn("export: salesforce record rejected", zap.String("error", msg))
		}
	}
	return res, err
}

func websiteFor(l company.Lead) string {
	if l.Domain == "" {
		return ""
	}
	return "https://" + l.Domain
}
