// Package pipeline runs the lead generation steps in order: search plan,
// Places scrape, merge and score, then contact discovery and verification.
// Every step writes its output under the configured output directory so a
// later run can resume from any step.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/metrics"
	"github.com/sells-group/lead-cli/internal/plan"
	"github.com/sells-group/lead-cli/internal/scorer"
	"github.com/sells-group/lead-cli/internal/store"
)

// Artifact file names written under the output directory.
const (
	FileLeadPlan     = "lead_plan.json"
	FilePlaces       = "google_places.json"
	FileMerged       = "merged.json"
	FileScored       = "scored.json"
	FileScoredCSV    = "scored.csv"
	FileScoredXLSX   = "scored.xlsx"
	FileQualified    = "qualified.json"
	FileQualifiedCSV = "qualified.csv"
	FileLeads        = "leads.json"
	FileLeadsCSV     = "leads.csv"
	FileValidLeads   = "valid_leads.json"
)

// PlacesSource names the scraped Places records in merge provenance.
const PlacesSource = "places"

// PlacesPriority ranks scraped records below every configured source.
const PlacesPriority = 100

// Planner generates a search plan from a product description.
type Planner interface {
	Generate(ctx context.Context, productDescription string) ([]plan.TargetGroup, error)
}

// PlaceScraper turns search terms into company records.
type PlaceScraper interface {
	ScrapeAll(ctx context.Context, terms []string) []company.CompanyRecord
}

// ContactFinder finds and verifies contacts at qualified companies.
type ContactFinder interface {
	FindAndVerify(ctx context.Context, qualified []company.ScoredCompanyRecord) []company.Lead
}

// Pipeline orchestrates a lead generation run.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	engine   *scorer.Engine
	planner  Planner
	scraper  PlaceScraper
	contacts ContactFinder
}

// Option configures optional step dependencies.
type Option func(*Pipeline)

// WithPlanner sets the search plan generator.
func WithPlanner(p Planner) Option {
	return func(pl *Pipeline) { pl.planner = p }
}

// WithScraper sets the Places scraper.
func WithScraper(s PlaceScraper) Option {
	return func(pl *Pipeline) { pl.scraper = s }
}

// WithContacts sets the contact finder.
func WithContacts(c ContactFinder) Option {
	return func(pl *Pipeline) { pl.contacts = c }
}

// New creates a Pipeline. Dependencies for disabled steps may be omitted.
func New(cfg *config.Config, st store.Store, engine *scorer.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, store: st, engine: engine}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Result is the in-memory output of a run.
type Result struct {
	RunID     string                        `json:"run_id"`
	Stats     store.RunStats                `json:"stats"`
	Groups    []plan.TargetGroup            `json:"groups,omitempty"`
	Terms     []string                      `json:"terms,omitempty"`
	Places    []company.CompanyRecord       `json:"places,omitempty"`
	Merged    []company.CompanyRecord       `json:"merged,omitempty"`
	Scored    []company.ScoredCompanyRecord `json:"scored,omitempty"`
	Qualified []company.ScoredCompanyRecord `json:"qualified,omitempty"`
	Leads     []company.Lead                `json:"leads,omitempty"`
}

// Run executes the enabled steps and records the run in the store. The run
// is marked failed when any step returns an error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.checkDeps(); err != nil {
		return nil, err
	}

	run, err := p.store.CreateRun(ctx, p.cfg.Pipeline.ProductDescription)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: starting run")

	res := &Result{RunID: run.ID}
	if err := p.runSteps(ctx, log, res); err != nil {
		if failErr := p.store.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); failErr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(failErr))
		}
		return res, err
	}

	if err := p.store.CompleteRun(ctx, run.ID, res.Stats); err != nil {
		return res, eris.Wrap(err, "pipeline: complete run")
	}
	log.Info("pipeline: run complete",
		zap.Int("qualified", res.Stats.Qualified),
		zap.Int("leads", res.Stats.Leads),
		zap.Int("valid_leads", res.Stats.ValidLeads),
	)
	return res, nil
}

func (p *Pipeline) runSteps(ctx context.Context, log *zap.Logger, res *Result) error {
	steps := p.cfg.Pipeline.Steps

	if steps.GenerateSearchTerms {
		if err := p.track(log, "plan", func() error { return p.planStep(ctx, res) }); err != nil {
			return err
		}
	}
	if steps.ScrapeGooglePlaces {
		if err := p.track(log, "scrape", func() error { return p.scrapeStep(ctx, res) }); err != nil {
			return err
		}
	}
	if steps.ProcessAndMergeData {
		if err := p.track(log, "process", func() error { return p.processStep(ctx, res) }); err != nil {
			return err
		}
	}
	if steps.FindAndVerifyContacts {
		if err := p.track(log, "contacts", func() error { return p.contactsStep(ctx, res) }); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (p *Pipeline) track(log *zap.Logger, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.StepDuration.WithLabelValues(step).Observe(elapsed.Seconds())

	if err != nil {
		log.Error("pipeline: step failed",
			zap.String("step", step),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return eris.Wrapf(err, "pipeline: %s", step)
	}
	log.Info("pipeline: step complete",
		zap.String("step", step),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
	return nil
}

func (p *Pipeline) checkDeps() error {
	steps := p.cfg.Pipeline.Steps
	switch {
	case p.store == nil:
		return eris.New("pipeline: store is required")
	case steps.GenerateSearchTerms && p.planner == nil:
		return eris.New("pipeline: planner is required when generate_search_terms is enabled")
	case steps.ScrapeGooglePlaces && p.scraper == nil:
		return eris.New("pipeline: scraper is required when scrape_google_places is enabled")
	case steps.ProcessAndMergeData && p.engine == nil:
		return eris.New("pipeline: scoring engine is required when process_and_merge_data is enabled")
	case steps.FindAndVerifyContacts && p.contacts == nil:
		return eris.New("pipeline: contact finder is required when find_and_verify_contacts is enabled")
	}
	return nil
}

// path returns name under the output directory.
func (p *Pipeline) path(name string) string {
	return filepath.Join(p.cfg.Pipeline.OutputDir, name)
}

// record stores an artifact row. Failures are logged, not returned.
func (p *Pipeline) record(ctx context.Context, runID, name string, records int) {
	err := p.store.SaveArtifact(ctx, store.Artifact{
		RunID:   runID,
		Name:    name,
		Path:    p.path(name),
		Records: records,
	})
	if err != nil {
		zap.L().Warn("pipeline: failed to record artifact",
			zap.String("run_id", runID),
			zap.String("artifact", name),
			zap.Error(err),
		)
	}
}
