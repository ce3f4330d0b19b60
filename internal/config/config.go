package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	SendGrid   SendGridConfig   `yaml:"sendgrid" mapstructure:"sendgrid"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// TemporalConfig configures the workflow runtime connection.
type TemporalConfig struct {
	Address   string `yaml:"address" mapstructure:"address"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// SendGridConfig holds email delivery settings.
type SendGridConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	FromName  string `yaml:"from_name" mapstructure:"from_name"`
}

// CrawlConfig configures site crawling.
type CrawlConfig struct {
	MaxPages         int `yaml:"max_pages" mapstructure:"max_pages"`
	MaxChildSitemaps int `yaml:"max_child_sitemaps" mapstructure:"max_child_sitemaps"`
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MaxBodyChars     int `yaml:"max_body_chars" mapstructure:"max_body_chars"`
	MaxHeadings      int `yaml:"max_headings" mapstructure:"max_headings"`
}

// ScanConfig configures the scan and enrichment workflows.
type ScanConfig struct {
	PromptCount          int      `yaml:"prompt_count" mapstructure:"prompt_count"`
	PerQueryPlatforms    []string `yaml:"per_query_platforms" mapstructure:"per_query_platforms"`
	QueriesPerSecond     float64  `yaml:"queries_per_second" mapstructure:"queries_per_second"`
	ScanTimeoutMins      int      `yaml:"scan_timeout_mins" mapstructure:"scan_timeout_mins"`
	EnrichTimeoutMins    int      `yaml:"enrich_timeout_mins" mapstructure:"enrich_timeout_mins"`
	StepMaxAttempts      int      `yaml:"step_max_attempts" mapstructure:"step_max_attempts"`
	QueryTimeoutSecs     int      `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	AnalysisWaitAttempts int      `yaml:"analysis_wait_attempts" mapstructure:"analysis_wait_attempts"`
	AnalysisWaitDelayMs  int      `yaml:"analysis_wait_delay_ms" mapstructure:"analysis_wait_delay_ms"`
}

// ScoringConfig holds the per-platform reach weights. The coefficients are a
// business parameter, not a structural invariant.
type ScoringConfig struct {
	ReachWeights map[string]float64 `yaml:"reach_weights" mapstructure:"reach_weights"`
	TopN         int                `yaml:"top_competitors" mapstructure:"top_competitors"`
}

// ReportConfig configures report artifacts.
type ReportConfig struct {
	ExpiryDays int    `yaml:"expiry_days" mapstructure:"expiry_days"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("temporal.address", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "scanner")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-search-preview")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("sendgrid.base_url", "https://api.sendgrid.com")
	v.SetDefault("crawl.max_pages", 20)
	v.SetDefault("crawl.max_child_sitemaps", 5)
	v.SetDefault("crawl.fetch_timeout_secs", 10)
	v.SetDefault("crawl.max_body_chars", 5000)
	v.SetDefault("crawl.max_headings", 20)
	v.SetDefault("scan.prompt_count", 7)
	v.SetDefault("scan.per_query_platforms", []string{"chatgpt"})
	v.SetDefault("scan.queries_per_second", 0.5)
	v.SetDefault("scan.scan_timeout_mins", 10)
	v.SetDefault("scan.enrich_timeout_mins", 15)
	v.SetDefault("scan.step_max_attempts", 3)
	v.SetDefault("scan.query_timeout_secs", 60)
	v.SetDefault("scan.analysis_wait_attempts", 5)
	v.SetDefault("scan.analysis_wait_delay_ms", 2000)
	v.SetDefault("scoring.reach_weights", map[string]float64{
		"chatgpt":    0.60,
		"claude":     0.10,
		"perplexity": 0.15,
		"gemini":     0.15,
	})
	v.SetDefault("scoring.top_competitors", 10)
	v.SetDefault("report.expiry_days", 7)
	v.SetDefault("report.base_url", "https://app.mentionscope.com")

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
