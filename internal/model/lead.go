package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Lead is one row of an imported lead table.
type Lead struct {
	Email       string // required
	Phone       string // optional
	Description string // required, free-text job listing
}

// Key returns a stable identifier for the lead, used for deduplication.
func (l Lead) Key() string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(l.Email))))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(l.Description)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Fingerprint digests everything besides the lead that shapes a classification:
// every profile field and settings, which identifies the classifier
// configuration (source, keyword tables, model).
func Fingerprint(p Profile, settings string) string {
	h := sha256.New()
	for _, f := range []string{
		settings, p.Name, p.Email, p.Phone, p.Portfolio, p.LinkedIn, p.Figma, p.ResumeLink, p.Bio,
	} {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Profile describes the sender of application emails. Every field is optional;
// an empty field suppresses the matching content in generated emails.
type Profile struct {
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Phone      string `yaml:"phone"`
	Portfolio  string `yaml:"portfolio"`
	LinkedIn   string `yaml:"linkedin"`
	Figma      string `yaml:"figma"`
	ResumeLink string `yaml:"resume_link"`
	Bio        string `yaml:"bio"`
}

// IsZero reports whether no profile field is set.
func (p Profile) IsZero() bool {
	return p == Profile{}
}

// Classification is the outcome of classifying one job description.
// EmailSubject and EmailBody are empty when IsEntryLevel is false.
type Classification struct {
	IsEntryLevel bool   `json:"isEntryLevel"`
	EmailSubject string `json:"emailSubject"`
	Reason       string `json:"reason"`
	EmailBody    string `json:"emailBody"`
}

// LeadResult pairs a lead with its classification and run metadata.
type LeadResult struct {
	Lead           Lead
	Classification Classification
	Source         string // classifier that produced the result: rules, gemini, openai
	Err            string // redacted failure message, empty on success
	RunID          string
	ProcessedAt    time.Time
	// Inputs is the Fingerprint of the profile and classifier settings that
	// produced the result. A stored result is reused only while it matches.
	Inputs string
}

// Failed reports whether classification failed for this lead.
func (r LeadResult) Failed() bool {
	return r.Err != ""
}

// Summary aggregates a batch of classifications.
type Summary struct {
	Total      int
	EntryLevel int
	Skipped    int
	Percentage float64
}

// RunInfo summarizes one stored classification run.
type RunInfo struct {
	RunID      string
	Leads      int
	EntryLevel int
	Failed     int
	StartedAt  time.Time
}

// Classifier decides whether a lead is entry-level and drafts an email for it.
type Classifier interface {
	Classify(ctx context.Context, lead Lead, profile Profile) (Classification, error)
}

// ResultStore persists lead results so re-imports skip work already done.
type ResultStore interface {
	GetResult(key string) (*LeadResult, error)
	SaveResult(key string, r LeadResult) error
	// AddRunLead records that the lead stored under key was the position-th
	// lead of runID, whether it was classified fresh or reused.
	AddRunLead(runID string, position int, key string) error
	ListResults(runID string) ([]LeadResult, error)
	Cleanup(olderThan time.Duration) error
	IsEmpty() (bool, error)
}

// ProfileStore persists the single sender profile.
type ProfileStore interface {
	LoadProfile() (Profile, error)
	SaveProfile(p Profile) error
}

// Notifier announces drafted application emails.
type Notifier interface {
	Notify(results []LeadResult) error
}

// PercentString renders Percentage with one decimal place.
func (s Summary) PercentString() string {
	return strconv.FormatFloat(s.Percentage, 'f', 1, 64)
}
