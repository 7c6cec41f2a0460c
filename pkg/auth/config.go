package auth

import "time"

// Config contains provider configuration for webhooks and SCM auth.
type Config struct {
	GitHub    ProviderConfig `yaml:"github"`
	GitLab    ProviderConfig `yaml:"gitlab"`
	TimeoutMS int64          `yaml:"timeout_ms"`
}

// ProviderConfig contains webhook and API credentials for a provider.
type ProviderConfig struct {
	Enabled bool `yaml:"enabled"`
	// Secret is the HMAC key for GitHub and the expected X-Gitlab-Token for GitLab.
	Secret  string `yaml:"secret"`
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`

	// Timeout bounds every outbound API call. Filled from Config.TimeoutMS.
	Timeout time.Duration `yaml:"-"`
}

// Redacted returns a copy with credentials masked.
func (p ProviderConfig) Redacted() ProviderConfig {
	p.Secret = mask(p.Secret)
	p.Token = mask(p.Token)
	return p
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return "****"
}
