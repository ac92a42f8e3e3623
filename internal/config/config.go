package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/leadmail/internal/model"
)

// Config is the root configuration for leadmail.
type Config struct {
	Database     string
	Profile      model.Profile // seed used when the store holds no profile
	AI           AIConfig
	RateLimit    RateLimitConfig
	Retry        RetryConfig
	Classifier   ClassifierConfig
	Notification NotificationConfig
}

// AIConfig controls the optional LLM classification layer.
type AIConfig struct {
	Enabled  bool
	Provider string        // "gemini" or "openai"
	BaseURL  string        // defaults per provider
	Model    string        // provider model identifier, e.g. "gemini-2.5-flash"
	APIKey   string        // expanded from env var by Load
	Timeout  time.Duration // per-request timeout
}

// RateLimitConfig controls the pause between consecutive AI calls.
type RateLimitConfig struct {
	MinDelay time.Duration
}

// RetryConfig controls backoff around each AI call.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// ClassifierConfig replaces the built-in keyword tables when non-empty.
type ClassifierConfig struct {
	EntryKeywords  []string `yaml:"entry_keywords"`
	SeniorKeywords []string `yaml:"senior_keywords"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultGeminiModel   = "gemini-2.5-flash"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultDatabase      = "leadmail.db"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database     string             `yaml:"database"`
	Profile      model.Profile      `yaml:"profile"`
	AI           rawAIConfig        `yaml:"ai"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Retry        rawRetryConfig     `yaml:"retry"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawAIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	Timeout  string `yaml:"timeout"`
}

type rawRateLimitConfig struct {
	MinDelay string `yaml:"min_delay"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

// Default returns the configuration used when no config file exists:
// rule-based classification, log notifications, a local SQLite database.
func Default() *Config {
	cfg, err := build(rawConfig{})
	if err != nil {
		// The zero raw config only takes defaults.
		panic(err)
	}
	return cfg
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := build(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func build(raw rawConfig) (*Config, error) {
	var err error

	aiTimeout := 30 * time.Second // default
	if raw.AI.Timeout != "" {
		aiTimeout, err = time.ParseDuration(raw.AI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ai.timeout %q: %w", raw.AI.Timeout, err)
		}
	}

	minDelay := 2 * time.Second // default
	if raw.RateLimit.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.RateLimit.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.min_delay %q: %w", raw.RateLimit.MinDelay, err)
		}
	}

	maxRetries := 3
	if raw.Retry.MaxRetries != nil {
		maxRetries = *raw.Retry.MaxRetries
	}
	baseDelay := 1 * time.Second // doubled per attempt
	if raw.Retry.BaseDelay != "" {
		baseDelay, err = time.ParseDuration(raw.Retry.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("parse retry.base_delay %q: %w", raw.Retry.BaseDelay, err)
		}
	}

	provider := strings.ToLower(strings.TrimSpace(raw.AI.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	aiModel := raw.AI.Model
	aiBaseURL := raw.AI.BaseURL
	switch provider {
	case ProviderGemini:
		if aiModel == "" {
			aiModel = defaultGeminiModel
		}
	case ProviderOpenAI:
		if aiModel == "" {
			aiModel = defaultOpenAIModel
		}
		if aiBaseURL == "" {
			aiBaseURL = defaultOpenAIBaseURL
		}
	}

	database := raw.Database
	if database == "" {
		database = defaultDatabase
	}

	notification := raw.Notification
	if notification.Type == "" {
		notification.Type = "log"
	}

	return &Config{
		Database: database,
		Profile:  raw.Profile,
		AI: AIConfig{
			Enabled:  raw.AI.Enabled,
			Provider: provider,
			BaseURL:  aiBaseURL,
			Model:    aiModel,
			APIKey:   raw.AI.APIKey,
			Timeout:  aiTimeout,
		},
		RateLimit:    RateLimitConfig{MinDelay: minDelay},
		Retry:        RetryConfig{MaxRetries: maxRetries, BaseDelay: baseDelay},
		Classifier:   raw.Classifier,
		Notification: notification,
	}, nil
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.RateLimit.MinDelay < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.min_delay must not be negative, got %v", cfg.RateLimit.MinDelay))
	}
	if cfg.Retry.MaxRetries < 0 || cfg.Retry.MaxRetries > 10 {
		errs = append(errs, fmt.Errorf("retry.max_retries must be between 0 and 10, got %d", cfg.Retry.MaxRetries))
	}
	if cfg.Retry.BaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay must be positive, got %v", cfg.Retry.BaseDelay))
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			errs = append(errs, fmt.Errorf("notification.webhook_url is required when type is \"slack\""))
		} else if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			errs = append(errs, fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/"))
		}
	default:
		errs = append(errs, fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type))
	}

	if cfg.AI.Enabled {
		switch cfg.AI.Provider {
		case ProviderGemini, ProviderOpenAI:
		default:
			errs = append(errs, fmt.Errorf("ai.provider must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, cfg.AI.Provider))
		}
		if cfg.AI.APIKey == "" {
			errs = append(errs, fmt.Errorf("ai.api_key is required when ai.enabled is true"))
		}
		if cfg.AI.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("ai.timeout must be positive, got %v", cfg.AI.Timeout))
		}
	}

	return errors.Join(errs...)
}
