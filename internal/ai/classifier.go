package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/amishk599/leadmail/internal/model"
)

// Ensure LLMClassifier implements model.Classifier.
var _ model.Classifier = (*LLMClassifier)(nil)

// LLMClassifier implements model.Classifier by asking an LLM for a structured decision.
type LLMClassifier struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMClassifier creates a classifier that renders tmpl and sends it to provider.
func NewLLMClassifier(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMClassifier {
	return &LLMClassifier{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Source names the provider behind this classifier.
func (c *LLMClassifier) Source() string {
	return c.provider.Name()
}

// Classify renders the prompt for lead and profile, calls the provider and
// parses its structured response.
func (c *LLMClassifier) Classify(ctx context.Context, lead model.Lead, profile model.Profile) (model.Classification, error) {
	var promptBuf bytes.Buffer
	if err := c.tmpl.Execute(&promptBuf, struct {
		Description string
		Profile     model.Profile
	}{
		Description: lead.Description,
		Profile:     profile,
	}); err != nil {
		return model.Classification{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := c.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.Classification{}, fmt.Errorf("llm complete: %w", err)
	}

	result, err := parseClassification(raw)
	if err != nil {
		return model.Classification{}, fmt.Errorf("parse classification: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("llm classified lead",
			"provider", c.provider.Name(),
			"email", lead.Email,
			"entry_level", result.IsEntryLevel,
		)
	}
	return result, nil
}

// parseClassification deserializes the LLM response. Structured outputs
// guarantee the shape; subject and body are cleared for non-entry results.
func parseClassification(raw string) (model.Classification, error) {
	var c model.Classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return model.Classification{}, fmt.Errorf("unmarshal classification JSON: %w", err)
	}

	c.Reason = strings.TrimSpace(c.Reason)
	if !c.IsEntryLevel {
		c.EmailSubject = ""
		c.EmailBody = ""
		return c, nil
	}
	c.EmailSubject = strings.TrimSpace(c.EmailSubject)
	c.EmailBody = strings.TrimSpace(c.EmailBody)
	return c, nil
}
