package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/contacts"
	"github.com/sells-group/lead-cli/internal/discovery"
	"github.com/sells-group/lead-cli/internal/pipeline"
	"github.com/sells-group/lead-cli/internal/plan"
	"github.com/sells-group/lead-cli/internal/resilience"
	"github.com/sells-group/lead-cli/internal/scorer"
	"github.com/sells-group/lead-cli/internal/store"
	"github.com/sells-group/lead-cli/pkg/anthropic"
	"github.com/sells-group/lead-cli/pkg/apollo"
	"github.com/sells-group/lead-cli/pkg/gemini"
	"github.com/sells-group/lead-cli/pkg/google"
	"github.com/sells-group/lead-cli/pkg/neverbounce"
	"github.com/sells-group/lead-cli/pkg/notion"
	"github.com/sells-group/lead-cli/pkg/salesforce"
)

// pipelineEnv holds the store, the pipeline and anything that must be
// released when the command exits.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	closers  []func()
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	for _, c := range pe.closers {
		c()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func retryPolicy() resilience.Policy {
	return resilience.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff)
}

// initEngine builds the scoring engine from the default rubric and the
// configured weights. Sections present in a rubric file override both.
func initEngine() (*scorer.Engine, error) {
	rubric := scorer.DefaultRubric()
	rubric.Weights = cfg.Scoring.Weights
	if cfg.Scoring.RubricFile != "" {
		r, err := scorer.LoadRubric(cfg.Scoring.RubricFile, rubric)
		if err != nil {
			return nil, err
		}
		rubric = r
	}
	return scorer.New(rubric)
}

// initCompleter returns the configured LLM adapter and its cleanup func.
func initCompleter(ctx context.Context) (plan.Completer, func(), error) {
	mc := plan.ModelConfig{MaxTokens: cfg.LLM.MaxTokens, Temperature: cfg.LLM.Temperature}

	switch cfg.LLM.Provider {
	case "gemini":
		c, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			return nil, nil, err
		}
		mc.Model = cfg.Gemini.Model
		return plan.NewGeminiCompleter(c, mc), func() { _ = c.Close() }, nil
	default:
		mc.Model = cfg.Anthropic.Model
		return plan.NewAnthropicCompleter(anthropic.NewClient(cfg.Anthropic.Key), mc), func() {}, nil
	}
}

func initScraper() *discovery.Scraper {
	g := google.NewClient(cfg.Google.Key,
		google.WithBaseURL(cfg.Google.BaseURL),
		google.WithRetry(retryPolicy()),
	)
	return discovery.NewScraper(g, discovery.Options{
		MaxPages:           cfg.Google.MaxPages,
		PageDelay:          time.Duration(cfg.Google.PageDelayMs) * time.Millisecond,
		RateLimit:          cfg.Google.RateLimit,
		Concurrency:        cfg.Google.MaxConcurrentTerms,
		FetchDetails:       cfg.Google.FetchDetails,
		DirectoryBlocklist: cfg.Google.DirectoryBlocklist,
	})
}

func initContacts() *contacts.Service {
	policy := retryPolicy()
	a := apollo.NewClient(cfg.Apollo.Key,
		apollo.WithBaseURL(cfg.Apollo.BaseURL),
		apollo.WithRetry(policy),
	)
	v := neverbounce.NewClient(cfg.NeverBounce.Key,
		neverbounce.WithBaseURL(cfg.NeverBounce.BaseURL),
		neverbounce.WithRetry(policy),
	)
	return contacts.NewService(a, v, contacts.Options{
		Personas:    cfg.Pipeline.Personas,
		MaxPages:    cfg.Apollo.MaxPages,
		PerPage:     cfg.Apollo.PerPage,
		Concurrency: cfg.Pipeline.MaxConcurrentCompanies,
		CacheTTL:    time.Duration(cfg.NeverBounce.CacheTTLMinutes) * time.Minute,
	})
}

// initPipeline validates config for mode, opens the store and wires the
// clients needed by the enabled steps. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &pipelineEnv{}
	var opts []pipeline.Option
	steps := cfg.Pipeline.Steps

	if steps.GenerateSearchTerms {
		completer, closeFn, err := initCompleter(ctx)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, closeFn)
		opts = append(opts, pipeline.WithPlanner(plan.NewGenerator(completer, plan.Options{
			MinGroups:        cfg.LLM.MinGroups,
			MaxGroups:        cfg.LLM.MaxGroups,
			MaxTermsPerGroup: cfg.LLM.MaxTermsPerGroup,
		})))
	}
	if steps.ScrapeGooglePlaces {
		opts = append(opts, pipeline.WithScraper(initScraper()))
	}
	if steps.FindAndVerifyContacts {
		opts = append(opts, pipeline.WithContacts(initContacts()))
	}

	engine, err := initEngine()
	if err != nil {
		env.Close()
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Store = st
	env.Pipeline = pipeline.New(cfg, st, engine, opts...)

	zap.L().Debug("pipeline initialized",
		zap.Bool("plan", steps.GenerateSearchTerms),
		zap.Bool("scrape", steps.ScrapeGooglePlaces),
		zap.Bool("process", steps.ProcessAndMergeData),
		zap.Bool("contacts", steps.FindAndVerifyContacts),
	)
	return env, nil
}

func initNotion() notion.Client {
	return notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(3))
}

func initSalesforce() (salesforce.Client, error) {
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	return salesforce.Connect(salesforce.Creds{
		LoginURL: cfg.Salesforce.LoginURL,
		Username: cfg.Salesforce.Username,
		ClientID: cfg.Salesforce.ClientID,
		KeyPEM:   string(pemData),
	}, salesforce.WithRateLimit(5))
}
