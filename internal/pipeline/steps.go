package pipeline

import (
	"context"
	"os"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/internal/contacts"
	"github.com/sells-group/lead-cli/internal/export"
	"github.com/sells-group/lead-cli/internal/metrics"
	"github.com/sells-group/lead-cli/internal/plan"
	"github.com/sells-group/lead-cli/internal/scorer"
)

func (p *Pipeline) planStep(ctx context.Context, res *Result) error {
	groups, err := p.planner.Generate(ctx, p.cfg.Pipeline.ProductDescription)
	if err != nil {
		return err
	}
	if err := export.WriteJSON(p.path(FileLeadPlan), groups); err != nil {
		return err
	}
	p.record(ctx, res.RunID, FileLeadPlan, len(groups))

	res.Groups = groups
	res.Terms = plan.Terms(groups)
	res.Stats.SearchTerms = len(res.Terms)
	return nil
}

func (p *Pipeline) scrapeStep(ctx context.Context, res *Result) error {
	terms := res.Terms
	if !p.cfg.Pipeline.Steps.GenerateSearchTerms {
		res.Groups = export.Load[plan.TargetGroup](p.path(FileLeadPlan))
		terms = plan.Terms(res.Groups)
		res.Terms = terms
		res.Stats.SearchTerms = len(terms)
	}
	if len(terms) == 0 {
		zap.L().Warn("pipeline: no search terms available, skipping places scrape")
		return nil
	}

	scraped := p.scraper.ScrapeAll(ctx, terms)
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range scraped {
		if scraped[i].ScrapedAt == nil {
			scraped[i].ScrapedAt = &now
		}
	}

	var existing []company.CompanyRecord
	if _, err := os.Stat(p.path(FilePlaces)); err == nil {
		existing = export.LoadRecords(p.path(FilePlaces))
	}
	places, added := appendPlaces(existing, scraped)
	zap.L().Info("pipeline: places scraped",
		zap.Int("existing", len(existing)),
		zap.Int("new", added),
		zap.Int("total", len(places)),
	)

	if err := export.WriteJSON(p.path(FilePlaces), places); err != nil {
		return err
	}
	p.record(ctx, res.RunID, FilePlaces, len(places))

	res.Places = places
	res.Stats.PlacesRecords = len(places)
	return nil
}

// appendPlaces appends scraped records not already present by place ID.
// The first record seen for an ID wins. Records without an ID are kept.
func appendPlaces(existing, scraped []company.CompanyRecord) ([]company.CompanyRecord, int) {
	out := make([]company.CompanyRecord, 0, len(existing)+len(scraped))
	seen := make(map[string]struct{}, len(existing)+len(scraped))
	added := 0
	for i, r := range slices.Concat(existing, scraped) {
		if r.PlaceID != "" {
			if _, dup := seen[r.PlaceID]; dup {
				continue
			}
			seen[r.PlaceID] = struct{}{}
		}
		if i >= len(existing) {
			added++
		}
		out = append(out, r)
	}
	return out, added
}

func (p *Pipeline) processStep(ctx context.Context, res *Result) error {
	places := res.Places
	if !p.cfg.Pipeline.Steps.ScrapeGooglePlaces {
		places = export.LoadRecords(p.path(FilePlaces))
		res.Places = places
		res.Stats.PlacesRecords = len(places)
	}

	sources := []company.Source{{Name: PlacesSource, Priority: PlacesPriority, Records: places}}
	for _, sc := range p.cfg.Pipeline.Sources {
		records := export.LoadRawSource(sc.Path, sc.Name)
		if f := sc.Filter; f.Enabled() {
			kept := company.Filter(records, company.FilterCriteria{
				IndustrySubstring: f.Industry,
				CountryCode:       f.Country,
				CaseInsensitive:   f.CaseInsensitive,
			})
			zap.L().Info("pipeline: filtered source",
				zap.String("source", sc.Name),
				zap.String("industry", f.Industry),
				zap.String("country", f.Country),
				zap.Int("before", len(records)),
				zap.Int("after", len(kept)),
			)
			res.Stats.Filtered += len(records) - len(kept)
			records = kept
		}
		sources = append(sources, company.Source{Name: sc.Name, Priority: sc.Priority, Records: records})
	}

	merged := company.Merge(sources...)
	metrics.RecordsMerged.Add(float64(len(merged)))
	res.Merged = merged
	res.Stats.Merged = len(merged)

	scored := p.engine.Score(merged)
	for _, r := range scored {
		metrics.LikelihoodScore.Observe(r.LikelihoodScore)
	}
	metrics.RecordsScored.Add(float64(len(scored)))
	qualified := scorer.Select(scored, p.cfg.Pipeline.LeadScoreThreshold)
	metrics.RecordsQualified.Add(float64(len(qualified)))

	res.Scored = scored
	res.Qualified = qualified
	res.Stats.Scored = len(scored)
	res.Stats.Qualified = len(qualified)

	writes := []struct {
		name    string
		records int
		write   func(string) error
	}{
		{FileMerged, len(merged), func(path string) error { return export.WriteJSON(path, merged) }},
		{FileScored, len(scored), func(path string) error { return export.WriteJSON(path, scored) }},
		{FileScoredCSV, len(scored), func(path string) error { return export.SaveCompaniesCSV(path, scored) }},
		{FileScoredXLSX, len(scored), func(path string) error { return export.SaveCompaniesXLSX(path, scored) }},
		{FileQualified, len(qualified), func(path string) error { return export.WriteJSON(path, qualified) }},
		{FileQualifiedCSV, len(qualified), func(path string) error { return export.SaveCompaniesCSV(path, qualified) }},
	}
	for _, w := range writes {
		if err := w.write(p.path(w.name)); err != nil {
			return eris.Wrapf(err, "write %s", w.name)
		}
		p.record(ctx, res.RunID, w.name, w.records)
	}
	return nil
}

func (p *Pipeline) contactsStep(ctx context.Context, res *Result) error {
	qualified := res.Qualified
	if !p.cfg.Pipeline.Steps.ProcessAndMergeData {
		qualified = export.Load[company.ScoredCompanyRecord](p.path(FileQualified))
		res.Qualified = qualified
		res.Stats.Qualified = len(qualified)
	}
	leads := []company.Lead{}
	if len(qualified) == 0 {
		zap.L().Warn("pipeline: no qualified companies, skipping contact search")
	} else {
		leads = p.contacts.FindAndVerify(ctx, qualified)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	valid := contacts.ValidLeads(leads)

	if err := export.WriteJSON(p.path(FileLeads), leads); err != nil {
		return err
	}
	p.record(ctx, res.RunID, FileLeads, len(leads))
	if err := export.SaveLeadsCSV(p.path(FileLeadsCSV), leads); err != nil {
		return err
	}
	p.record(ctx, res.RunID, FileLeadsCSV, len(leads))
	if err := export.WriteJSON(p.path(FileValidLeads), valid); err != nil {
		return err
	}
	p.record(ctx, res.RunID, FileValidLeads, len(valid))

	if _, err := p.store.SaveLeads(ctx, res.RunID, leads); err != nil {
		return err
	}

	res.Leads = leads
	res.Stats.Leads = len(leads)
	res.Stats.ValidLeads = len(valid)
	return nil
}
