package notifier

import (
	"log/slog"

	"github.com/amishk599/leadmail/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes drafted applications to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each drafted email via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs recipient, subject and source for every drafted email.
// Skipped and failed results are ignored. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(results []model.LeadResult) error {
	for _, r := range Drafts(results) {
		args := []any{"to", r.Lead.Email, "subject", r.Classification.EmailSubject, "source", r.Source}
		if r.Lead.Phone != "" {
			args = append(args, "phone", r.Lead.Phone)
		}
		n.logger.Info("email drafted", args...)
	}
	return nil
}

// Drafts returns the results that carry a drafted email, in input order.
func Drafts(results []model.LeadResult) []model.LeadResult {
	var out []model.LeadResult
	for _, r := range results {
		if r.Failed() || !r.Classification.IsEntryLevel {
			continue
		}
		out = append(out, r)
	}
	return out
}
