package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/leadmail/internal/ai"
	"github.com/amishk599/leadmail/internal/classifier"
	"github.com/amishk599/leadmail/internal/config"
	"github.com/amishk599/leadmail/internal/model"
	"github.com/amishk599/leadmail/internal/notifier"
	"github.com/amishk599/leadmail/internal/ratelimit"
	"github.com/amishk599/leadmail/internal/retry"
	"github.com/amishk599/leadmail/internal/store"
	"github.com/amishk599/leadmail/internal/table"
)

const defaultConfigPath = "config.yaml"

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "leadmail",
	Short: "Turn a job-lead spreadsheet into application emails",
	Long: "leadmail imports a spreadsheet of job leads, decides which listings are entry-level " +
		"and drafts a personalized application email for each of them.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: LEADMAIL_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig loads .env, resolves the config path and parses it.
// Priority: explicit path arg > LEADMAIL_CONFIG env var > "./config.yaml".
// A missing default config file yields the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		if env := os.Getenv("LEADMAIL_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = defaultConfigPath
		}
	}

	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// silentLogger is used while a TUI owns the terminal; any log output
// corrupts the display.
func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// newRules returns the built-in keyword tables, replaced by any configured in
// classifier.entry_keywords / senior_keywords.
func newRules(cfg *config.Config) classifier.Rules {
	rules := classifier.DefaultRules()
	if len(cfg.Classifier.EntryKeywords) > 0 {
		rules.EntryKeywords = cfg.Classifier.EntryKeywords
	}
	if len(cfg.Classifier.SeniorKeywords) > 0 {
		rules.SeniorKeywords = cfg.Classifier.SeniorKeywords
	}
	return rules
}

func newEngine(cfg *config.Config) *classifier.Engine {
	return classifier.NewEngine(newRules(cfg))
}

// rulesSettings identifies the rule engine configuration in result fingerprints.
func rulesSettings(cfg *config.Config) string {
	return classifier.SourceRules + ":" + newRules(cfg).Digest()
}

// classifierSettings identifies the configured classifier in result
// fingerprints, so stored results are not reused after the keyword tables,
// provider or model change.
func classifierSettings(cfg *config.Config) string {
	if !cfg.AI.Enabled {
		return rulesSettings(cfg)
	}
	return cfg.AI.Provider + ":" + cfg.AI.Model
}

// setupClassifier returns the configured classifier and the source name
// recorded on its results. With AI disabled this is the rule engine;
// otherwise the LLM classifier wrapped as retry(ratelimit(llm)).
func setupClassifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.Classifier, string, error) {
	if !cfg.AI.Enabled {
		logger.Debug("ai disabled, using rule engine")
		return classifier.NewRuleClassifier(newEngine(cfg)), classifier.SourceRules, nil
	}

	httpClient := &http.Client{Timeout: cfg.AI.Timeout}

	var provider ai.LLMProvider
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		provider = ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient)
	case config.ProviderGemini:
		p, err := ai.NewGeminiProvider(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, httpClient)
		if err != nil {
			return nil, "", fmt.Errorf("setting up gemini: %w", err)
		}
		provider = p
	default:
		return nil, "", fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}

	llm := ai.NewLLMClassifier(provider, ai.ClassifyLeadTemplate, logger)
	source := llm.Source()
	logger.Info("using ai classifier",
		"provider", source,
		"model", cfg.AI.Model,
		"min_delay", cfg.RateLimit.MinDelay.String(),
		"max_retries", cfg.Retry.MaxRetries,
	)

	limiter := ratelimit.NewProviderRateLimiter(cfg.RateLimit.MinDelay)
	var c model.Classifier = ratelimit.NewRateLimitedClassifier(llm, limiter, source)
	c = retry.NewRetryClassifier(c, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger)
	return c, source, nil
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", cfg.Database, err)
	}
	return s, nil
}

// resolveProfile prefers the stored profile and falls back to the config seed.
func resolveProfile(ps model.ProfileStore, cfg *config.Config) (model.Profile, error) {
	p, err := ps.LoadProfile()
	if err != nil {
		return model.Profile{}, err
	}
	if p.IsZero() {
		return cfg.Profile, nil
	}
	return p, nil
}

// readLeads reads and parses a lead table from path, or stdin when path is "-".
func readLeads(path string, logger *slog.Logger) (table.Result, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return table.Result{}, fmt.Errorf("read %s: %w", path, err)
	}

	res, err := table.ParseTableDetailed(string(data))
	if err != nil {
		return table.Result{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, row := range res.Dropped {
		logger.Warn("row dropped: missing email or description", "file", path, "row", row)
	}
	return res, nil
}
