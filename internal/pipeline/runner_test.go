package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/leadmail/internal/classifier"
	"github.com/amishk599/leadmail/internal/model"
)

// --- Mock/Fake Implementations ---

// InMemoryStore is a map-based result store for testing dedup.
type InMemoryStore struct {
	results map[string]model.LeadResult
	runs    map[string][]string // run ID -> lead keys in run order
	saves   int
	getErr  error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		results: make(map[string]model.LeadResult),
		runs:    make(map[string][]string),
	}
}

func (s *InMemoryStore) GetResult(key string) (*model.LeadResult, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	r, ok := s.results[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *InMemoryStore) SaveResult(key string, r model.LeadResult) error {
	s.results[key] = r
	s.saves++
	return nil
}

func (s *InMemoryStore) AddRunLead(runID string, position int, key string) error {
	keys := s.runs[runID]
	for len(keys) <= position {
		keys = append(keys, "")
	}
	keys[position] = key
	s.runs[runID] = keys
	return nil
}

func (s *InMemoryStore) ListResults(runID string) ([]model.LeadResult, error) {
	var out []model.LeadResult
	for _, key := range s.runs[runID] {
		out = append(out, s.results[key])
	}
	return out, nil
}

func (s *InMemoryStore) Cleanup(_ time.Duration) error { return nil }
func (s *InMemoryStore) IsEmpty() (bool, error)        { return len(s.results) == 0, nil }

// RecordingNotifier records which results were sent to Notify.
type RecordingNotifier struct {
	Notified []model.LeadResult
	Err      error
}

func (n *RecordingNotifier) Notify(results []model.LeadResult) error {
	n.Notified = append(n.Notified, results...)
	return n.Err
}

// scriptedClassifier fails for descriptions containing "FAIL" and counts calls.
type scriptedClassifier struct {
	calls int
	err   error
}

func (c *scriptedClassifier) Classify(ctx context.Context, lead model.Lead, profile model.Profile) (model.Classification, error) {
	c.calls++
	if strings.Contains(lead.Description, "FAIL") {
		return model.Classification{}, c.err
	}
	return classifier.Classify(lead.Description, profile), nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeLeads(descriptions ...string) []model.Lead {
	leads := make([]model.Lead, len(descriptions))
	for i, d := range descriptions {
		leads[i] = model.Lead{Email: "hr@acme.com", Description: d}
	}
	return leads
}

func newRunner(c model.Classifier, store model.ResultStore, n model.Notifier) *Runner {
	r := NewRunner(c, "rules", store, n, discardLogger())
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	return r
}

// --- Tests ---

func TestRun_ClassifiesInOrderAndPersists(t *testing.T) {
	store := NewInMemoryStore()
	notifier := &RecordingNotifier{}
	r := newRunner(&scriptedClassifier{}, store, notifier)

	leads := makeLeads(
		"Junior developer role, no experience",
		"Senior architect",
		"Requires at least 5 years",
	)
	results, stats, err := r.Run(context.Background(), "run-1", leads, model.Profile{Name: "Ana"})
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Lead != leads[i] {
			t.Errorf("result %d lead = %+v, want %+v", i, res.Lead, leads[i])
		}
		if res.RunID != "run-1" || res.Source != "rules" {
			t.Errorf("result %d run/source = %q/%q", i, res.RunID, res.Source)
		}
	}
	if !results[0].Classification.IsEntryLevel || results[1].Classification.IsEntryLevel || results[2].Classification.IsEntryLevel {
		t.Errorf("unexpected decisions: %v %v %v",
			results[0].Classification.IsEntryLevel,
			results[1].Classification.IsEntryLevel,
			results[2].Classification.IsEntryLevel)
	}
	if stats.Classified != 3 || stats.Reused != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if store.saves != 3 {
		t.Errorf("expected 3 saves, got %d", store.saves)
	}
	if len(notifier.Notified) != 3 {
		t.Errorf("expected notifier to receive all 3 fresh results, got %d", len(notifier.Notified))
	}
}

func TestRun_SkipsAlreadyProcessed(t *testing.T) {
	store := NewInMemoryStore()
	leads := makeLeads("Junior developer", "Graduate trainee program")

	prev := model.LeadResult{
		Lead:           leads[0],
		Classification: model.Classification{IsEntryLevel: true, EmailSubject: "cached"},
		RunID:          "run-0",
		Inputs:         model.Fingerprint(model.Profile{}, "rules"),
	}
	store.results[leads[0].Key()] = prev

	c := &scriptedClassifier{}
	notifier := &RecordingNotifier{}
	r := newRunner(c, store, notifier)

	results, stats, err := r.Run(context.Background(), "run-1", leads, model.Profile{})
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if c.calls != 1 {
		t.Errorf("expected 1 classifier call, got %d", c.calls)
	}
	if results[0].Classification.EmailSubject != "cached" || results[0].RunID != "run-0" {
		t.Errorf("expected cached result first, got %+v", results[0])
	}
	if stats.Reused != 1 || stats.Classified != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(notifier.Notified) != 1 || notifier.Notified[0].Lead != leads[1] {
		t.Errorf("expected only the fresh lead to be notified, got %+v", notifier.Notified)
	}
}

func TestRun_ForceReclassifies(t *testing.T) {
	store := NewInMemoryStore()
	leads := makeLeads("Junior developer")
	store.results[leads[0].Key()] = model.LeadResult{Lead: leads[0], RunID: "run-0"}

	c := &scriptedClassifier{}
	r := newRunner(c, store, &RecordingNotifier{})
	r.Force = true

	results, _, err := r.Run(context.Background(), "run-1", leads, model.Profile{})
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if c.calls != 1 {
		t.Errorf("expected classifier to run with Force, got %d calls", c.calls)
	}
	if results[0].RunID != "run-1" {
		t.Errorf("expected fresh result, got run %q", results[0].RunID)
	}
}

func TestRun_FailureRecordedAndRedacted(t *testing.T) {
	store := NewInMemoryStore()
	c := &scriptedClassifier{err: errors.New("giving up after 3 retries: Authorization: Bearer sk-secret-token")}
	notifier := &RecordingNotifier{}
	r := newRunner(c, store, notifier)

	leads := makeLeads("FAIL here", "Junior developer")
	results, stats, err := r.Run(context.Background(), "run-1", leads, model.Profile{})
	if err != nil {
		t.Fatalf("Run() = %v, per-lead failures must not abort", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Failed() {
		t.Fatal("expected first result to be failed")
	}
	if strings.Contains(results[0].Err, "sk-secret-token") {
		t.Errorf("secret leaked into Err: %q", results[0].Err)
	}
	if stats.Failed != 1 || stats.Classified != 1 {
		t.Errorf("stats = %+v", stats)
	}

	// A failed result is retried on the next run.
	c2 := &scriptedClassifier{}
	r2 := newRunner(c2, store, notifier)
	if _, _, err := r2.Run(context.Background(), "run-2", leads[:1], model.Profile{}); err != nil {
		t.Fatalf("second Run() = %v", err)
	}
	if c2.calls != 1 {
		t.Errorf("expected failed lead to be reclassified, got %d calls", c2.calls)
	}
}

func TestRun_StoreErrorAborts(t *testing.T) {
	store := NewInMemoryStore()
	store.getErr = errors.New("disk I/O error")
	r := newRunner(&scriptedClassifier{}, store, &RecordingNotifier{})

	_, _, err := r.Run(context.Background(), "run-1", makeLeads("Junior developer"), model.Profile{})
	if err == nil {
		t.Fatal("expected store error to abort the run")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &scriptedClassifier{}
	r := newRunner(c, NewInMemoryStore(), &RecordingNotifier{})
	results, _, err := r.Run(ctx, "run-1", makeLeads("Junior developer"), model.Profile{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 0 || c.calls != 0 {
		t.Errorf("expected no work after cancellation, got %d results, %d calls", len(results), c.calls)
	}
}

func TestRun_NotifierErrorDoesNotFail(t *testing.T) {
	notifier := &RecordingNotifier{Err: errors.New("slack down")}
	r := newRunner(&scriptedClassifier{}, NewInMemoryStore(), notifier)

	if _, _, err := r.Run(context.Background(), "run-1", makeLeads("Junior developer"), model.Profile{}); err != nil {
		t.Fatalf("Run() = %v, want nil when only notification fails", err)
	}
}

func TestRun_ReportsProgress(t *testing.T) {
	r := newRunner(&scriptedClassifier{}, NewInMemoryStore(), nil)
	var seen []int
	r.OnProgress = func(done, total int) {
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		seen = append(seen, done)
	}

	if _, _, err := r.Run(context.Background(), "run-1", makeLeads("a job", "b job", "c job"), model.Profile{}); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(seen) != 3 || seen[2] != 3 {
		t.Errorf("progress calls = %v", seen)
	}
}

func TestRun_ProfileChangeReclassifies(t *testing.T) {
	store := NewInMemoryStore()
	leads := makeLeads("Junior developer role, no experience")

	c := &scriptedClassifier{}
	r := newRunner(c, store, &RecordingNotifier{})
	old := model.Profile{Name: "Old Name", Phone: "555-0100"}
	if _, _, err := r.Run(context.Background(), "run-1", leads, old); err != nil {
		t.Fatalf("first Run() = %v", err)
	}

	// Same profile: reused.
	results, stats, err := r.Run(context.Background(), "run-2", leads, old)
	if err != nil {
		t.Fatalf("second Run() = %v", err)
	}
	if stats.Reused != 1 || c.calls != 1 {
		t.Fatalf("expected reuse with unchanged profile, stats = %+v, calls = %d", stats, c.calls)
	}

	// New name, phone cleared: the stored draft is stale.
	results, stats, err = r.Run(context.Background(), "run-3", leads, model.Profile{Name: "New Name"})
	if err != nil {
		t.Fatalf("third Run() = %v", err)
	}
	if stats.Reused != 0 || stats.Classified != 1 || c.calls != 2 {
		t.Errorf("expected reclassification, stats = %+v, calls = %d", stats, c.calls)
	}
	got := results[0].Classification
	if !strings.HasSuffix(got.EmailSubject, " - New Name") {
		t.Errorf("subject = %q, want it signed with the new name", got.EmailSubject)
	}
	if strings.Contains(got.EmailBody, "555-0100") || strings.Contains(got.EmailBody, "OLD NAME") {
		t.Errorf("body still carries the previous profile:\n%s", got.EmailBody)
	}
}

func TestRun_SettingsChangeReclassifies(t *testing.T) {
	store := NewInMemoryStore()
	leads := makeLeads("Junior developer")
	c := &scriptedClassifier{}

	r := newRunner(c, store, nil)
	r.Settings = "rules:aaaa"
	if _, _, err := r.Run(context.Background(), "run-1", leads, model.Profile{}); err != nil {
		t.Fatalf("first Run() = %v", err)
	}

	r2 := NewRunner(c, "openai", store, nil, discardLogger())
	r2.Settings = "openai:gpt-4o-mini"
	results, stats, err := r2.Run(context.Background(), "run-2", leads, model.Profile{})
	if err != nil {
		t.Fatalf("second Run() = %v", err)
	}
	if stats.Reused != 0 || c.calls != 2 {
		t.Errorf("expected reclassification after settings change, stats = %+v, calls = %d", stats, c.calls)
	}
	if results[0].Source != "openai" {
		t.Errorf("Source = %q, want openai", results[0].Source)
	}
}

func TestRun_RecordsReusedLeadsInRun(t *testing.T) {
	store := NewInMemoryStore()
	r := newRunner(&scriptedClassifier{}, store, nil)

	if _, _, err := r.Run(context.Background(), "run-1", makeLeads("Junior developer"), model.Profile{}); err != nil {
		t.Fatalf("first Run() = %v", err)
	}
	leads := makeLeads("Junior developer", "Senior architect")
	if _, _, err := r.Run(context.Background(), "run-2", leads, model.Profile{}); err != nil {
		t.Fatalf("second Run() = %v", err)
	}

	listed, err := store.ListResults("run-2")
	if err != nil {
		t.Fatalf("ListResults() = %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("run-2 lists %d results, want 2 (one reused, one fresh)", len(listed))
	}
	for i, res := range listed {
		if res.Lead != leads[i] {
			t.Errorf("listed[%d] lead = %+v, want %+v", i, res.Lead, leads[i])
		}
	}
	if listed[0].RunID != "run-1" {
		t.Errorf("reused result RunID = %q, want run-1", listed[0].RunID)
	}
}
