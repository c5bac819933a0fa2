package model

import "time"

// Config is the complete filingqa configuration
type Config struct {
	SECAPI       SECAPIConfig       `yaml:"sec_api" mapstructure:"sec_api"`
	Retrieval    RetrievalConfig    `yaml:"retrieval" mapstructure:"retrieval"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Companies    CompaniesConfig    `yaml:"companies" mapstructure:"companies"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// SECAPIConfig holds endpoints and HTTP settings for the filing-data provider
type SECAPIConfig struct {
	BaseURL          string        `yaml:"base_url" mapstructure:"base_url"`
	ExtractorURL     string        `yaml:"extractor_url" mapstructure:"extractor_url"`
	InsiderURL       string        `yaml:"insider_url" mapstructure:"insider_url"`
	APIKey           string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ExtractorTimeout time.Duration `yaml:"extractor_timeout" mapstructure:"extractor_timeout"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy        string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy       string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// RetrievalMode selects how evidence is gathered for a question
type RetrievalMode string

const (
	ModeTargeted RetrievalMode = "targeted" // Strategy selector + fallback controller
	ModeBroad    RetrievalMode = "broad"    // Per-company sweep across form types
)

// RetrievalConfig controls the retrieval strategy engine
type RetrievalConfig struct {
	Mode              RetrievalMode `yaml:"mode" mapstructure:"mode"`
	AllowDefault      bool          `yaml:"allow_default" mapstructure:"allow_default"`
	FallbackTier      string        `yaml:"fallback_tier" mapstructure:"fallback_tier"` // "general_small" or "none"
	MaxTargets        int           `yaml:"max_targets" mapstructure:"max_targets"`
	TargetPause       time.Duration `yaml:"target_pause" mapstructure:"target_pause"`
	FormPause         time.Duration `yaml:"form_pause" mapstructure:"form_pause"` // Between forms in broad mode
	DefaultWindowDays int           `yaml:"default_window_days" mapstructure:"default_window_days"`
	TopCompanies      int           `yaml:"top_companies" mapstructure:"top_companies"`
	FilingsPerType    int           `yaml:"filings_per_type" mapstructure:"filings_per_type"`
}

// RateLimitingConfig controls per-host request pacing
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`

	// Hosts overrides requests_per_second for individual hosts
	Hosts map[string]float64 `yaml:"hosts,omitempty" mapstructure:"hosts"`
}

// CacheConfig controls the company lookup cache
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir        string        `yaml:"dir" mapstructure:"dir"`
	CompanyTTL time.Duration `yaml:"company_ttl" mapstructure:"company_ttl"`
}

// CompaniesConfig locates the ticker registry
type CompaniesConfig struct {
	TickersFile string `yaml:"tickers_file" mapstructure:"tickers_file"` // SEC company_tickers.json
}

// LLMConfig selects the model provider for query analysis and synthesis
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // trace, debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		SECAPI: SECAPIConfig{
			BaseURL:          "https://api.sec-api.io",
			ExtractorURL:     "https://api.sec-api.io/extractor",
			InsiderURL:       "https://api.sec-api.io/insider-trading",
			Timeout:          30 * time.Second,
			ExtractorTimeout: 60 * time.Second,
			UserAgent:        "filingqa/0.1 (+https://github.com/ppiankov/filingqa)",
		},
		Retrieval: RetrievalConfig{
			Mode:              ModeTargeted,
			AllowDefault:      true,
			FallbackTier:      "general_small",
			MaxTargets:        6,
			TargetPause:       300 * time.Millisecond,
			FormPause:         500 * time.Millisecond,
			DefaultWindowDays: 180,
			TopCompanies:      3,
			FilingsPerType:    3,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         1,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Dir:        ".filingqa-cache",
			CompanyTTL: 24 * time.Hour,
		},
		Companies: CompaniesConfig{
			TickersFile: "company_tickers.json",
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 1500,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
