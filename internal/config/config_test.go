package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("LEADMAIL_TEST_KEY", "secret-from-env")
	path := writeConfig(t, `
database: leads.db
profile:
  name: Jane Doe
  email: jane@example.com
  resume_link: https://jane.dev/cv.pdf
ai:
  enabled: true
  provider: openai
  api_key: ${LEADMAIL_TEST_KEY}
  timeout: 10s
rate_limit:
  min_delay: 500ms
retry:
  max_retries: 0
  base_delay: 250ms
classifier:
  entry_keywords:
    - apprentice
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "leads.db" {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.Profile.Name != "Jane Doe" || cfg.Profile.ResumeLink != "https://jane.dev/cv.pdf" {
		t.Errorf("Profile = %+v", cfg.Profile)
	}
	if cfg.AI.APIKey != "secret-from-env" {
		t.Errorf("APIKey = %q, want expanded env var", cfg.AI.APIKey)
	}
	if cfg.AI.BaseURL != defaultOpenAIBaseURL || cfg.AI.Model != defaultOpenAIModel {
		t.Errorf("AI defaults not applied: %+v", cfg.AI)
	}
	if cfg.AI.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v", cfg.AI.Timeout)
	}
	if cfg.RateLimit.MinDelay != 500*time.Millisecond {
		t.Errorf("MinDelay = %v", cfg.RateLimit.MinDelay)
	}
	if cfg.Retry.MaxRetries != 0 || cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if len(cfg.Classifier.EntryKeywords) != 1 || cfg.Classifier.EntryKeywords[0] != "apprentice" {
		t.Errorf("EntryKeywords = %v", cfg.Classifier.EntryKeywords)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q, want log", cfg.Notification.Type)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.AI.Enabled {
		t.Error("AI should be disabled by default")
	}
	if cfg.AI.Provider != ProviderGemini || cfg.AI.Model != defaultGeminiModel {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Database != defaultDatabase {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.RateLimit.MinDelay != 2*time.Second {
		t.Errorf("MinDelay = %v", cfg.RateLimit.MinDelay)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "database: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "ai enabled without key",
			content: "ai:\n  enabled: true\n",
			wantErr: "ai.api_key",
		},
		{
			name:    "unknown provider",
			content: "ai:\n  enabled: true\n  provider: claude\n  api_key: k\n",
			wantErr: "ai.provider",
		},
		{
			name:    "slack without webhook",
			content: "notification:\n  type: slack\n",
			wantErr: "webhook_url is required",
		},
		{
			name:    "slack with wrong host",
			content: "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n",
			wantErr: "hooks.slack.com",
		},
		{
			name:    "bad duration",
			content: "rate_limit:\n  min_delay: soon\n",
			wantErr: "rate_limit.min_delay",
		},
		{
			name:    "too many retries",
			content: "retry:\n  max_retries: 50\n",
			wantErr: "retry.max_retries",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
