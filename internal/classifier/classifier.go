// Package classifier decides whether a job description is suitable for an
// entry-level candidate and drafts an application email when it is.
package classifier

import (
	"context"
	"errors"
	"strings"

	"github.com/amishk599/leadmail/internal/model"
)

// SourceRules identifies results produced by the rule engine.
const SourceRules = "rules"

// ErrNoResults is returned by Summarize for an empty batch.
var ErrNoResults = errors.New("no results to summarize")

// Engine classifies descriptions against a fixed set of keyword tables.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	entry  []string
	senior []string
	fields []FieldRule
}

// NewEngine compiles rules into an Engine. Keywords are lower-cased once here.
func NewEngine(rules Rules) *Engine {
	fields := make([]FieldRule, 0, len(rules.Fields))
	for _, f := range rules.Fields {
		fields = append(fields, FieldRule{Label: f.Label, Keywords: lowerAll(f.Keywords)})
	}
	return &Engine{
		entry:  lowerAll(rules.EntryKeywords),
		senior: lowerAll(rules.SeniorKeywords),
		fields: fields,
	}
}

var defaultEngine = NewEngine(DefaultRules())

// Classify runs the default engine.
func Classify(description string, profile model.Profile) model.Classification {
	return defaultEngine.Classify(description, profile)
}

// Analyze collects keyword and experience evidence from description.
func (e *Engine) Analyze(description string) Evidence {
	text := strings.ToLower(description)
	maxYears, minYears := yearsRequired(text)
	return Evidence{
		HasEntryKeyword:  containsAny(text, e.entry),
		HasSeniorKeyword: containsAny(text, e.senior),
		MaxYearsRequired: maxYears,
		MinYearsRequired: minYears,
	}
}

// Classify decides entry-level suitability and, for qualifying descriptions,
// drafts the application email. Any input, including "", yields a result.
func (e *Engine) Classify(description string, profile model.Profile) model.Classification {
	isEntry, reason := e.Analyze(description).decide()
	if !isEntry {
		return model.Classification{IsEntryLevel: false, Reason: reason}
	}

	role := ExtractRole(description)
	field := e.DetectField(description)
	return model.Classification{
		IsEntryLevel: true,
		EmailSubject: Subject(role, profile),
		Reason:       reason,
		EmailBody:    Body(role, field, profile),
	}
}

// DetectField returns the label of the first field rule whose vocabulary
// appears in description, or FieldDefault.
func (e *Engine) DetectField(description string) string {
	text := strings.ToLower(description)
	for _, f := range e.fields {
		if containsAny(text, f.Keywords) {
			return f.Label
		}
	}
	return FieldDefault
}

// ClassifyAll classifies each lead in order; the result is index-aligned with leads.
func (e *Engine) ClassifyAll(leads []model.Lead, profile model.Profile) []model.Classification {
	out := make([]model.Classification, len(leads))
	for i, l := range leads {
		out[i] = e.Classify(l.Description, profile)
	}
	return out
}

// ClassifyAll runs the default engine over leads.
func ClassifyAll(leads []model.Lead, profile model.Profile) []model.Classification {
	return defaultEngine.ClassifyAll(leads, profile)
}

// Summarize counts entry-level and skipped results. It returns ErrNoResults
// for an empty slice since the percentage is undefined.
func Summarize(results []model.Classification) (model.Summary, error) {
	if len(results) == 0 {
		return model.Summary{}, ErrNoResults
	}
	s := model.Summary{Total: len(results)}
	for _, r := range results {
		if r.IsEntryLevel {
			s.EntryLevel++
		}
	}
	s.Skipped = s.Total - s.EntryLevel
	s.Percentage = float64(s.EntryLevel) / float64(s.Total) * 100
	return s, nil
}

// RuleClassifier adapts an Engine to model.Classifier.
type RuleClassifier struct {
	engine *Engine
}

// NewRuleClassifier returns a model.Classifier backed by engine.
func NewRuleClassifier(engine *Engine) *RuleClassifier {
	return &RuleClassifier{engine: engine}
}

// Classify never fails; the context is accepted only to satisfy model.Classifier.
func (c *RuleClassifier) Classify(_ context.Context, lead model.Lead, profile model.Profile) (model.Classification, error) {
	return c.engine.Classify(lead.Description, profile), nil
}
