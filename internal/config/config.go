package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lead-cli/internal/scorer"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini      GeminiConfig      `yaml:"gemini" mapstructure:"gemini"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Google      GoogleConfig      `yaml:"google" mapstructure:"google"`
	Apollo      ApolloConfig      `yaml:"apollo" mapstructure:"apollo"`
	NeverBounce NeverBounceConfig `yaml:"neverbounce" mapstructure:"neverbounce"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Notion      NotionConfig      `yaml:"notion" mapstructure:"notion"`
	Salesforce  SalesforceConfig  `yaml:"salesforce" mapstructure:"salesforce"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// LLMConfig selects and tunes the search plan model.
type LLMConfig struct {
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	Temperature      float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens        int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	MinGroups        int     `yaml:"min_groups" mapstructure:"min_groups"`
	MaxGroups        int     `yaml:"max_groups" mapstructure:"max_groups"`
	MaxTermsPerGroup int     `yaml:"max_terms_per_group" mapstructure:"max_terms_per_group"`
}

// GoogleConfig holds Places API settings.
type GoogleConfig struct {
	Key                string   `yaml:"key" mapstructure:"key"`
	BaseURL            string   `yaml:"base_url" mapstructure:"base_url"`
	MaxPages           int      `yaml:"max_pages" mapstructure:"max_pages"`
	PageDelayMs        int      `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	RateLimit          float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxConcurrentTerms int      `yaml:"max_concurrent_terms" mapstructure:"max_concurrent_terms"`
	FetchDetails       bool     `yaml:"fetch_details" mapstructure:"fetch_details"`
	DirectoryBlocklist []string `yaml:"directory_blocklist" mapstructure:"directory_blocklist"`
}

// ApolloConfig holds Apollo.io settings.
type ApolloConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages"`
	PerPage  int    `yaml:"per_page" mapstructure:"per_page"`
}

// NeverBounceConfig holds NeverBounce settings.
type NeverBounceConfig struct {
	Key             string `yaml:"key" mapstructure:"key"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// PipelineConfig configures a full run.
type PipelineConfig struct {
	ProductDescription     string         `yaml:"product_description" mapstructure:"product_description"`
	LeadScoreThreshold     float64        `yaml:"lead_score_threshold" mapstructure:"lead_score_threshold"`
	Personas               []string       `yaml:"personas" mapstructure:"personas"`
	OutputDir              string         `yaml:"output_dir" mapstructure:"output_dir"`
	MaxConcurrentCompanies int            `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
	Steps                  StepsConfig    `yaml:"steps" mapstructure:"steps"`
	Sources                []SourceConfig `yaml:"sources" mapstructure:"sources"`
}

// StepsConfig toggles individual pipeline stages.
type StepsConfig struct {
	GenerateSearchTerms   bool `yaml:"generate_search_terms" mapstructure:"generate_search_terms"`
	ScrapeGooglePlaces    bool `yaml:"scrape_google_places" mapstructure:"scrape_google_places"`
	ProcessAndMergeData   bool `yaml:"process_and_merge_data" mapstructure:"process_and_merge_data"`
	FindAndVerifyContacts bool `yaml:"find_and_verify_contacts" mapstructure:"find_and_verify_contacts"`
}

// SourceConfig points at an additional raw record file to merge. Filter,
// when enabled, is applied to this source's records before merging.
type SourceConfig struct {
	Name     string       `yaml:"name" mapstructure:"name"`
	Priority int          `yaml:"priority" mapstructure:"priority"`
	Path     string       `yaml:"path" mapstructure:"path"`
	Filter   FilterConfig `yaml:"filter" mapstructure:"filter"`
}

// FilterConfig holds an optional industry/country filter.
type FilterConfig struct {
	Industry        string `yaml:"industry" mapstructure:"industry"`
	Country         string `yaml:"country" mapstructure:"country"`
	CaseInsensitive bool   `yaml:"case_insensitive" mapstructure:"case_insensitive"`
}

// Enabled reports whether both filter criteria are set.
func (f FilterConfig) Enabled() bool {
	return f.Industry != "" && f.Country != ""
}

// ScoringConfig overrides the default rubric.
type ScoringConfig struct {
	RubricFile string         `yaml:"rubric_file" mapstructure:"rubric_file"`
	Weights    scorer.Weights `yaml:"weights" mapstructure:"weights"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
	Object   string `yaml:"object" mapstructure:"object"`
}

// RetryConfig tunes the retry policy shared by the HTTP clients.
type RetryConfig struct {
	MaxAttempts    int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoff     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have no default but must be known to viper so that
	// AutomaticEnv resolves them during Unmarshal.
	for _, key := range []string{
		"anthropic.key", "gemini.key", "google.key", "apollo.key", "neverbounce.key",
		"pipeline.product_description", "scoring.rubric_file",
		"notion.token", "notion.lead_db",
		"salesforce.client_id", "salesforce.username", "salesforce.key_path",
	} {
		v.SetDefault(key, "")
	}

	// Defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.min_groups", 5)
	v.SetDefault("llm.max_groups", 10)
	v.SetDefault("llm.max_terms_per_group", 10)
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.max_pages", 3)
	v.SetDefault("google.page_delay_ms", 2000)
	v.SetDefault("google.rate_limit", 5.0)
	v.SetDefault("google.max_concurrent_terms", 4)
	v.SetDefault("google.fetch_details", true)
	v.SetDefault("google.directory_blocklist", []string{
		"facebook.com", "yelp.com", "linkedin.com", "instagram.com", "yellowpages.com", "bbb.org",
	})
	v.SetDefault("apollo.base_url", "https://api.apollo.io")
	v.SetDefault("apollo.max_pages", 5)
	v.SetDefault("apollo.per_page", 25)
	v.SetDefault("neverbounce.base_url", "https://api.neverbounce.com/v4")
	v.SetDefault("neverbounce.cache_ttl_minutes", 60)
	v.SetDefault("pipeline.lead_score_threshold", 7.0)
	v.SetDefault("pipeline.personas", []string{
		"Head of Sustainability", "Compliance Officer", "Chief Financial Officer", "VP of Operations",
	})
	v.SetDefault("pipeline.output_dir", "data")
	v.SetDefault("pipeline.max_concurrent_companies", 5)
	v.SetDefault("pipeline.steps.generate_search_terms", true)
	v.SetDefault("pipeline.steps.scrape_google_places", true)
	v.SetDefault("pipeline.steps.process_and_merge_data", true)
	v.SetDefault("pipeline.steps.find_and_verify_contacts", true)
	v.SetDefault("scoring.weights.employee_count", 0.5)
	v.SetDefault("scoring.weights.industry", 0.5)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.object", "Lead")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks bounds shared by every command plus the keys required by
// mode: "plan", "scrape", "process", "contacts", "run", "serve",
// "export-notion" or "export-salesforce".
func (c *Config) Validate(mode string) error {
	var errs []string

	required := func(val, name string) {
		if val == "" {
			errs = append(errs, name+" is required")
		}
	}
	requireLLM := func() {
		switch c.LLM.Provider {
		case "anthropic":
			required(c.Anthropic.Key, "anthropic.key")
		case "gemini":
			required(c.Gemini.Key, "gemini.key")
		default:
			errs = append(errs, fmt.Sprintf("llm.provider must be anthropic or gemini, got %q", c.LLM.Provider))
		}
	}

	if t := c.Pipeline.LeadScoreThreshold; math.IsNaN(t) || t < 0 || t > scorer.MaxScore {
		errs = append(errs, "pipeline.lead_score_threshold must be between 0 and 10")
	}
	if n := c.Pipeline.MaxConcurrentCompanies; n < 1 || n > 50 {
		errs = append(errs, "pipeline.max_concurrent_companies must be between 1 and 50")
	}
	if n := c.Google.MaxPages; n < 1 {
		errs = append(errs, "google.max_pages must be >= 1")
	}
	if w := c.Scoring.Weights; !finite(w.EmployeeCount) || !finite(w.Industry) {
		errs = append(errs, "scoring.weights values must be finite numbers")
	} else if w.EmployeeCount < 0 || w.Industry < 0 {
		errs = append(errs, "scoring.weights values must be >= 0")
	}
	for i, src := range c.Pipeline.Sources {
		if f := src.Filter; (f.Industry == "") != (f.Country == "") {
			errs = append(errs, fmt.Sprintf("pipeline.sources[%d].filter needs both industry and country", i))
		}
	}

	switch mode {
	case "plan":
		requireLLM()
	case "scrape":
		required(c.Google.Key, "google.key")
	case "process":
	case "contacts":
		required(c.Apollo.Key, "apollo.key")
		required(c.NeverBounce.Key, "neverbounce.key")
	case "run":
		steps := c.Pipeline.Steps
		if steps.GenerateSearchTerms {
			requireLLM()
			required(c.Pipeline.ProductDescription, "pipeline.product_description")
		}
		if steps.ScrapeGooglePlaces {
			required(c.Google.Key, "google.key")
		}
		if steps.FindAndVerifyContacts {
			required(c.Apollo.Key, "apollo.key")
			required(c.NeverBounce.Key, "neverbounce.key")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "export-notion":
		required(c.Notion.Token, "notion.token")
		required(c.Notion.LeadDB, "notion.lead_db")
	case "export-salesforce":
		required(c.Salesforce.ClientID, "salesforce.client_id")
		required(c.Salesforce.Username, "salesforce.username")
		required(c.Salesforce.KeyPath, "salesforce.key_path")
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
