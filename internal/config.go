package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reviewhooks/pkg/auth"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWebhookSecret  = "mysecret"
	DefaultReviewEndpoint = "https://api.codemate.ai/v1/code-review"
	DefaultReviewAgent    = "code-review"
	DefaultFeedbackPath   = "$.review"
)

// Config represents the application configuration.
type Config struct {
	// Server holds server-specific configuration.
	Server struct {
		Port           int    `yaml:"port"`
		Path           string `yaml:"path"`
		ReadTimeoutMS  int64  `yaml:"read_timeout_ms"`
		WriteTimeoutMS int64  `yaml:"write_timeout_ms"`
		IdleTimeoutMS  int64  `yaml:"idle_timeout_ms"`
		ReadHeaderMS   int64  `yaml:"read_header_timeout_ms"`
		MaxBodyBytes   int64  `yaml:"max_body_bytes"`
		MetricsEnabled bool   `yaml:"metrics_enabled"`
		MetricsPath    string `yaml:"metrics_path"`
		DebugEvents    bool   `yaml:"debug_events"`
	} `yaml:"server"`
	Log LogConfig `yaml:"log"`
	// Providers contains configuration for each Git provider.
	Providers auth.Config  `yaml:"providers"`
	Review    ReviewConfig `yaml:"review"`
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ReviewConfig holds settings for the review endpoint client.
type ReviewConfig struct {
	APIKey       string     `yaml:"api_key"`
	Endpoint     string     `yaml:"endpoint"`
	Agent        string     `yaml:"agent"`
	FeedbackPath string     `yaml:"feedback_path"`
	TimeoutMS    int64      `yaml:"timeout_ms"`
	SkipWhen     []SkipRule `yaml:"skip_when"`
}

// LoadConfig loads the application configuration from a YAML file.
// It expands environment variables, applies defaults, and falls back to the
// well-known environment variables for anything left empty. An empty path
// skips the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		cfg.Providers.GitHub.Enabled = true
		cfg.Providers.GitLab.Enabled = true
	}

	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)

	normalized, err := normalizeSkipRules(cfg.Review.SkipWhen)
	if err != nil {
		return cfg, err
	}
	cfg.Review.SkipWhen = normalized
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) {
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if value, ok := lookup(key); ok {
			*dst = strings.TrimSpace(value)
		}
	}
	fill(&cfg.Providers.GitHub.Token, "GITHUB_TOKEN")
	fill(&cfg.Providers.GitHub.Secret, "WEBHOOK_SECRET")
	fill(&cfg.Providers.GitLab.Token, "GITLAB_TOKEN")
	fill(&cfg.Review.APIKey, "CODEMATE_API_KEY")
	fill(&cfg.Review.Endpoint, "CODEMATE_URL")
	fill(&cfg.Log.Level, "LOG_LEVEL")

	if cfg.Server.Port == 0 {
		if value, ok := lookup("PORT"); ok {
			if port, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				cfg.Server.Port = port
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.Path == "" {
		cfg.Server.Path = "/webhook"
	}
	if cfg.Server.ReadTimeoutMS == 0 {
		cfg.Server.ReadTimeoutMS = 5000
	}
	if cfg.Server.WriteTimeoutMS == 0 {
		// A review round trip can take most of a minute.
		cfg.Server.WriteTimeoutMS = 90000
	}
	if cfg.Server.IdleTimeoutMS == 0 {
		cfg.Server.IdleTimeoutMS = 60000
	}
	if cfg.Server.ReadHeaderMS == 0 {
		cfg.Server.ReadHeaderMS = 5000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/debug/vars"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Providers.GitHub.Secret == "" {
		cfg.Providers.GitHub.Secret = DefaultWebhookSecret
	}
	if cfg.Providers.TimeoutMS == 0 {
		cfg.Providers.TimeoutMS = 15000
	}
	timeout := time.Duration(cfg.Providers.TimeoutMS) * time.Millisecond
	cfg.Providers.GitHub.Timeout = timeout
	cfg.Providers.GitLab.Timeout = timeout
	if cfg.Review.Endpoint == "" {
		cfg.Review.Endpoint = DefaultReviewEndpoint
	}
	if cfg.Review.Agent == "" {
		cfg.Review.Agent = DefaultReviewAgent
	}
	if cfg.Review.FeedbackPath == "" {
		cfg.Review.FeedbackPath = DefaultFeedbackPath
	}
	if cfg.Review.TimeoutMS == 0 {
		cfg.Review.TimeoutMS = 30000
	}
}

func normalizeSkipRules(rules []SkipRule) ([]SkipRule, error) {
	out := make([]SkipRule, 0, len(rules))
	for i := range rules {
		rule := rules[i]
		rule.Name = strings.TrimSpace(rule.Name)
		rule.When = strings.TrimSpace(rule.When)
		if rule.When == "" {
			return nil, fmt.Errorf("skip rule %d is missing when", i)
		}
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("rule-%d", i)
		}
		out = append(out, rule)
	}
	return out, nil
}

// Redacted returns a copy of the configuration safe to print.
func (c Config) Redacted() Config {
	c.Providers.GitHub = c.Providers.GitHub.Redacted()
	c.Providers.GitLab = c.Providers.GitLab.Redacted()
	if c.Review.APIKey != "" {
		c.Review.APIKey = "****"
	}
	return c
}
