// Package config loads the marketdigest configuration from an optional YAML
// file and applies environment variable overrides. Credentials are never
// persisted; they only flow from flags, the file, or the environment into
// the adapter configs for the duration of one run.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for one report run.
type Config struct {
	Output    string   `yaml:"output"`
	DaysAhead int      `yaml:"days_ahead"`
	HTTP      HTTP     `yaml:"http"`
	Logging   Logging  `yaml:"logging"`
	Econ      Econ     `yaml:"economic_calendar"`
	Earnings  Earnings `yaml:"earnings_calendar"`
	Social    Social   `yaml:"social"`
	Reddit    Reddit   `yaml:"reddit"`
}

// HTTP configures the shared outbound HTTP client.
type HTTP struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RetryMax       int    `yaml:"retry_max"`
	UserAgent      string `yaml:"user_agent"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Econ holds Trading Economics calendar settings.
type Econ struct {
	APIKey     string   `yaml:"api_key"`
	Countries  []string `yaml:"countries"`
	Importance []string `yaml:"importance"`
}

// Earnings holds Nasdaq earnings calendar settings.
type Earnings struct {
	Symbols         []string `yaml:"symbols"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
}

// Social holds the social-post watchlist.
type Social struct {
	Handles []string `yaml:"handles"`
	Limit   int      `yaml:"limit"`
}

// Reddit holds forum credentials and watchlists.
type Reddit struct {
	ClientID       string   `yaml:"client_id"`
	ClientSecret   string   `yaml:"client_secret"`
	UserAgent      string   `yaml:"user_agent"`
	Subreddits     []string `yaml:"subreddits"`
	Users          []string `yaml:"users"`
	SubredditLimit int      `yaml:"subreddit_limit"`
	UserLimit      int      `yaml:"user_limit"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Output: "market_report.md",
		HTTP: HTTP{
			TimeoutSeconds: 30,
			RetryMax:       3,
			UserAgent:      "marketdigest/1.0",
		},
		Logging: Logging{Level: "info"},
		Earnings: Earnings{
			RateLimitPerMin: 60,
		},
		Social: Social{Limit: 20},
		Reddit: Reddit{
			SubredditLimit: 10,
			UserLimit:      5,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), fills in
// defaults for anything the file leaves unset, and applies environment
// overrides. Real environment variables win over file values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		applyFileDefaults(cfg)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyFileDefaults restores defaults for fields a sparse config file
// zeroed out.
func applyFileDefaults(cfg *Config) {
	def := Default()
	if cfg.Output == "" {
		cfg.Output = def.Output
	}
	if cfg.HTTP.TimeoutSeconds <= 0 {
		cfg.HTTP.TimeoutSeconds = def.HTTP.TimeoutSeconds
	}
	if cfg.HTTP.RetryMax < 0 {
		cfg.HTTP.RetryMax = def.HTTP.RetryMax
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = def.HTTP.UserAgent
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Earnings.RateLimitPerMin <= 0 {
		cfg.Earnings.RateLimitPerMin = def.Earnings.RateLimitPerMin
	}
	if cfg.Social.Limit <= 0 {
		cfg.Social.Limit = def.Social.Limit
	}
	if cfg.Reddit.SubredditLimit <= 0 {
		cfg.Reddit.SubredditLimit = def.Reddit.SubredditLimit
	}
	if cfg.Reddit.UserLimit <= 0 {
		cfg.Reddit.UserLimit = def.Reddit.UserLimit
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADING_ECONOMICS_KEY"); v != "" {
		cfg.Econ.APIKey = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Reddit.ClientSecret = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		cfg.Reddit.UserAgent = v
	}
	if v := os.Getenv("MARKETDIGEST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
