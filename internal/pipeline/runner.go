package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/leadmail/internal/classifier"
	"github.com/amishk599/leadmail/internal/model"
	"github.com/amishk599/leadmail/internal/redact"
)

// Runner owns the batch pipeline for one import:
// dedup → classify → persist → notify → summarize.
type Runner struct {
	classifier model.Classifier
	source     string
	store      model.ResultStore
	notifier   model.Notifier
	logger     *slog.Logger

	// Force reclassifies leads that already have a stored result.
	Force bool
	// Settings identifies the classifier configuration in result fingerprints.
	// Defaults to the source name.
	Settings string
	// OnProgress, when set, is called after each lead with the number done so far.
	OnProgress func(done, total int)

	now func() time.Time
}

// NewRunner creates a runner wired with all its dependencies. source names the
// classifier in stored results (rules, gemini, openai).
func NewRunner(
	c model.Classifier,
	source string,
	store model.ResultStore,
	notifier model.Notifier,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		classifier: c,
		source:     source,
		store:      store,
		notifier:   notifier,
		logger:     logger,
		Settings:   source,
		now:        time.Now,
	}
}

// Stats counts what happened to each lead during a run.
type Stats struct {
	Classified int
	Reused     int
	Failed     int
}

// Run classifies leads in order and returns one result per lead, in input order.
// A stored result is reused only when it succeeded and was produced from the
// same profile and classifier settings. A lead whose classification fails is
// recorded with a redacted Err and the run continues. Store errors and context
// cancellation abort the run; results produced so far are returned alongside
// the error.
func (r *Runner) Run(ctx context.Context, runID string, leads []model.Lead, profile model.Profile) ([]model.LeadResult, Stats, error) {
	var stats Stats
	results := make([]model.LeadResult, 0, len(leads))
	var fresh []model.LeadResult
	inputs := model.Fingerprint(profile, r.Settings)

	for i, lead := range leads {
		if err := ctx.Err(); err != nil {
			return results, stats, fmt.Errorf("run %s cancelled: %w", runID, err)
		}

		key := lead.Key()
		if !r.Force {
			prev, err := r.store.GetResult(key)
			if err != nil {
				return results, stats, fmt.Errorf("run %s: checking stored result: %w", runID, err)
			}
			switch {
			case prev == nil || prev.Failed():
				// nothing usable stored
			case prev.Inputs != inputs:
				r.logger.Debug("stored result is stale, reclassifying", "to", lead.Email, "run_id", prev.RunID)
			default:
				r.logger.Debug("lead already processed", "to", lead.Email, "run_id", prev.RunID)
				if err := r.store.AddRunLead(runID, i, key); err != nil {
					return results, stats, fmt.Errorf("run %s: recording lead: %w", runID, err)
				}
				results = append(results, *prev)
				stats.Reused++
				r.progress(i+1, len(leads))
				continue
			}
		}

		res := model.LeadResult{Lead: lead, Source: r.source, RunID: runID, Inputs: inputs}
		c, err := r.classifier.Classify(ctx, lead, profile)
		if err != nil {
			if ctx.Err() != nil {
				return results, stats, fmt.Errorf("run %s cancelled: %w", runID, err)
			}
			res.Err = redact.Secrets(err.Error())
			r.logger.Warn("classification failed", "to", lead.Email, "error", res.Err)
			stats.Failed++
		} else {
			res.Classification = c
			stats.Classified++
		}
		res.ProcessedAt = r.now()

		if err := r.store.SaveResult(key, res); err != nil {
			return results, stats, fmt.Errorf("run %s: saving result: %w", runID, err)
		}
		if err := r.store.AddRunLead(runID, i, key); err != nil {
			return results, stats, fmt.Errorf("run %s: recording lead: %w", runID, err)
		}
		results = append(results, res)
		fresh = append(fresh, res)
		r.progress(i+1, len(leads))
	}

	if len(fresh) > 0 && r.notifier != nil {
		if err := r.notifier.Notify(fresh); err != nil {
			r.logger.Error("notification failed", "run_id", runID, "error", err)
		}
	}

	r.logSummary(runID, results, stats)
	return results, stats, nil
}

func (r *Runner) progress(done, total int) {
	if r.OnProgress != nil {
		r.OnProgress(done, total)
	}
}

func (r *Runner) logSummary(runID string, results []model.LeadResult, stats Stats) {
	var classified []model.Classification
	for _, res := range results {
		if !res.Failed() {
			classified = append(classified, res.Classification)
		}
	}

	args := []any{
		"run_id", runID,
		"leads", len(results),
		"classified", stats.Classified,
		"reused", stats.Reused,
		"failed", stats.Failed,
	}
	if sum, err := classifier.Summarize(classified); err == nil {
		args = append(args, "entry_level", sum.EntryLevel, "skipped", sum.Skipped, "percent", sum.PercentString())
	}
	r.logger.Info("run complete", args...)
}
