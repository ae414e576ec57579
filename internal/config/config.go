package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Schedule      string           `yaml:"schedule"`
	RunOnStart    bool             `yaml:"run_on_start"`
	LogLevel      string           `yaml:"log_level"`
	Keywords      []string         `yaml:"keywords"`
	LookbackHours int              `yaml:"lookback_hours"`
	Workers       int              `yaml:"workers"`
	NotifyEmpty   bool             `yaml:"notify_empty"`
	Sources       []SourceConfig   `yaml:"sources"`
	Store         StoreConfig      `yaml:"store"`
	Extract       ExtractConfig    `yaml:"extract"`
	Summarizer    SummarizerConfig `yaml:"summarizer"`
	Publishers    PublishersConfig `yaml:"publishers"`
}

type SourceConfig struct {
	Type       string   `yaml:"type"`
	Name       string   `yaml:"name"`
	Categories []string `yaml:"categories"`
	MaxResults int      `yaml:"max_results"`
	FeedURL    string   `yaml:"feed_url"`
}

type StoreConfig struct {
	Type         string `yaml:"type"`
	Token        string `yaml:"token"`
	Owner        string `yaml:"owner"`
	Repo         string `yaml:"repo"`
	Label        string `yaml:"label"`
	LookbackDays int    `yaml:"lookback_days"`
}

type ExtractConfig struct {
	Mode           string `yaml:"mode"`
	FirstPages     int    `yaml:"first_pages"`
	LastPages      int    `yaml:"last_pages"`
	MaxChars       int    `yaml:"max_chars"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type SummarizerConfig struct {
	Provider          string `yaml:"provider"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	MaxTokens         int    `yaml:"max_tokens"`
	MaxRetries        int    `yaml:"max_retries"`
	BaseDelaySeconds  int    `yaml:"base_delay_seconds"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type PublishersConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
	Email   EmailConfig   `yaml:"email"`
	Web     WebConfig     `yaml:"web"`
	Stdout  StdoutConfig  `yaml:"stdout"`
}

type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type StdoutConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Lookback returns the window source adapters query when fetching new
// candidates.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackHours) * time.Hour
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"deepseek":  "deepseek-chat",
	"gemini":    "gemini-1.5-flash",
	"anthropic": "claude-sonnet-4-20250514",
}

func setDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LookbackHours == 0 {
		cfg.LookbackHours = 48
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []SourceConfig{{
			Type:       "arxiv",
			Categories: []string{"cs.OS", "cs.DC", "cs.NI"},
		}}
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Name == "" {
			cfg.Sources[i].Name = cfg.Sources[i].Type
		}
		if cfg.Sources[i].MaxResults == 0 {
			cfg.Sources[i].MaxResults = 30
		}
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "github"
	}
	if cfg.Store.Label == "" {
		cfg.Store.Label = "daily-paper"
	}
	if cfg.Store.LookbackDays == 0 {
		cfg.Store.LookbackDays = 1
	}
	if cfg.Extract.Mode == "" {
		cfg.Extract.Mode = "partial"
	}
	if cfg.Extract.FirstPages == 0 {
		cfg.Extract.FirstPages = 3
	}
	if cfg.Extract.LastPages == 0 {
		cfg.Extract.LastPages = 1
	}
	if cfg.Extract.MaxChars == 0 {
		cfg.Extract.MaxChars = 50000
	}
	if cfg.Extract.TimeoutSeconds == 0 {
		cfg.Extract.TimeoutSeconds = 30
	}
	if cfg.Summarizer.Provider == "" {
		cfg.Summarizer.Provider = "openai"
	}
	if cfg.Summarizer.Model == "" {
		cfg.Summarizer.Model = defaultModels[cfg.Summarizer.Provider]
	}
	if cfg.Summarizer.MaxTokens == 0 {
		cfg.Summarizer.MaxTokens = 4096
	}
	if cfg.Summarizer.MaxRetries == 0 {
		cfg.Summarizer.MaxRetries = 3
	}
	if cfg.Summarizer.BaseDelaySeconds == 0 {
		cfg.Summarizer.BaseDelaySeconds = 30
	}
	if cfg.Summarizer.RequestsPerMinute == 0 {
		cfg.Summarizer.RequestsPerMinute = 3
	}
	pubs := &cfg.Publishers
	if !pubs.Webhook.Enabled && !pubs.Email.Enabled && !pubs.Web.Enabled && !pubs.Stdout.Enabled {
		pubs.Stdout.Enabled = true
	}
	if pubs.Email.SMTPPort == 0 {
		pubs.Email.SMTPPort = 587
	}
	if pubs.Web.Addr == "" {
		pubs.Web.Addr = ":8080"
	}
}

func validate(cfg *Config) error {
	for _, sc := range cfg.Sources {
		switch sc.Type {
		case "arxiv":
			if len(sc.Categories) == 0 {
				return fmt.Errorf("config: source %q: categories are required for arxiv sources", sc.Name)
			}
		case "rss":
			if sc.FeedURL == "" {
				return fmt.Errorf("config: source %q: feed_url is required for rss sources", sc.Name)
			}
		default:
			return fmt.Errorf("config: unsupported source type %q (supported: arxiv, rss)", sc.Type)
		}
	}
	if cfg.Store.Type != "github" {
		return fmt.Errorf("config: unsupported store type %q (supported: github)", cfg.Store.Type)
	}
	if cfg.Store.Token == "" {
		return fmt.Errorf("config: store.token is required (set GITHUB_TOKEN env var)")
	}
	if cfg.Store.Owner == "" || cfg.Store.Repo == "" {
		return fmt.Errorf("config: store.owner and store.repo are required")
	}
	switch cfg.Extract.Mode {
	case "partial", "full":
	default:
		return fmt.Errorf("config: unsupported extract mode %q (supported: partial, full)", cfg.Extract.Mode)
	}
	switch cfg.Summarizer.Provider {
	case "openai", "deepseek", "gemini", "anthropic":
	default:
		return fmt.Errorf("config: unsupported summarizer provider %q (supported: openai, deepseek, gemini, anthropic)", cfg.Summarizer.Provider)
	}
	if cfg.Summarizer.APIKey == "" {
		return fmt.Errorf("config: summarizer.api_key is required")
	}
	if cfg.Publishers.Webhook.Enabled && cfg.Publishers.Webhook.URL == "" {
		return fmt.Errorf("config: publishers.webhook.url is required when the webhook publisher is enabled")
	}
	if cfg.Publishers.Email.Enabled {
		if cfg.Publishers.Email.SMTPHost == "" {
			return fmt.Errorf("config: publishers.email.smtp_host is required when the email publisher is enabled")
		}
		if len(cfg.Publishers.Email.To) == 0 {
			return fmt.Errorf("config: publishers.email.to is required when the email publisher is enabled")
		}
		if cfg.Publishers.Email.From == "" {
			return fmt.Errorf("config: publishers.email.from is required when the email publisher is enabled")
		}
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
