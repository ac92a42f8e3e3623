package notifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/amishk599/leadmail/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult(email string) model.LeadResult {
	return model.LeadResult{
		Lead: model.Lead{
			Email:       email,
			Phone:       "555-0100",
			Description: "Junior developer position at Acme",
		},
		Classification: model.Classification{
			IsEntryLevel: true,
			EmailSubject: "Application for Junior developer Position - Ana",
			Reason:       "Contains entry-level keywords and no senior requirements",
			EmailBody:    "Dear Hiring Manager,\n\nI am writing to express my interest.\n\nBest regards,",
		},
		Source: "rules",
	}
}

func newTestSlack(url string, client *http.Client) *SlackNotifier {
	n := NewSlackNotifier(url, client, discardLogger())
	n.interval = 0
	return n
}

func TestSlackNotifier_EmptyResults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())

	if err := n.Notify(nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	skipped := sampleResult("skip@acme.com")
	skipped.Classification.IsEntryLevel = false
	if err := n.Notify([]model.LeadResult{skipped}); err != nil {
		t.Errorf("Notify(skipped) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_SingleDraft(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify([]model.LeadResult{sampleResult("hr@acme.com")}); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	header := payload.Blocks[0]
	if header.Text.Text != "✉️ Application for Junior developer Position - Ana" {
		t.Errorf("header text = %q", header.Text.Text)
	}
	if to := payload.Blocks[1].Fields[0].Text; to != "*To:*\nhr@acme.com" {
		t.Errorf("to field = %q", to)
	}
	link := payload.Blocks[4].Text.Text
	if !strings.HasPrefix(link, "<mailto:hr@acme.com?subject=Application%20for%20Junior") {
		t.Errorf("compose link = %q", link)
	}
	if !strings.HasSuffix(link, "|Compose email>") {
		t.Errorf("compose link label missing: %q", link)
	}
}

func TestSlackNotifier_MultipleDrafts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	results := []model.LeadResult{
		sampleResult("a@x.com"),
		sampleResult("b@x.com"),
		sampleResult("c@x.com"),
	}

	if err := n.Notify(results); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 3 {
		t.Errorf("expected 3 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	err := n.Notify([]model.LeadResult{sampleResult("a@x.com"), sampleResult("b@x.com")})
	if err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify([]model.LeadResult{sampleResult("a@x.com"), sampleResult("b@x.com")}); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify([]model.LeadResult{sampleResult("hr@acme.com")}); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestBuildPayload_Format(t *testing.T) {
	r := sampleResult("hr@acme.com")
	r.Lead.Phone = ""
	r.Classification.EmailBody = strings.Repeat("x", maxPreviewLen+100)

	payload := buildPayload(r)

	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" {
		t.Errorf("block[0] type = %q, want header", payload.Blocks[0].Type)
	}
	if phone := payload.Blocks[1].Fields[1].Text; phone != "*Phone:*\nn/a" {
		t.Errorf("phone field = %q, want n/a for empty phone", phone)
	}
	if src := payload.Blocks[2].Fields[1].Text; src != "*Source:*\nrules" {
		t.Errorf("source field = %q", src)
	}
	preview := payload.Blocks[3].Text.Text
	if !strings.HasSuffix(preview, "…```") {
		t.Errorf("expected truncated preview, got suffix %q", preview[len(preview)-10:])
	}
	if payload.Blocks[5].Type != "divider" {
		t.Errorf("block[5] type = %q, want divider", payload.Blocks[5].Type)
	}
}

func TestBuildPayload_ComposeLinkFitsSection(t *testing.T) {
	short := sampleResult("hr@acme.com")
	link := buildPayload(short).Blocks[4].Text.Text
	if !strings.Contains(link, "body=") || !strings.HasSuffix(link, "|Compose email>") {
		t.Errorf("expected full compose link for a short body, got %q", link)
	}

	long := sampleResult("hr@acme.com")
	long.Classification.EmailBody = strings.Repeat("Paragraph with spaces and punctuation!\n", 200)
	link = buildPayload(long).Blocks[4].Text.Text
	if len(link) > maxSectionLen {
		t.Fatalf("compose link is %d characters, limit %d", len(link), maxSectionLen)
	}
	if strings.Contains(link, "body=") {
		t.Errorf("expected body to be dropped from an oversized link, got %q", link)
	}
	if !strings.Contains(link, "mailto:hr@acme.com?subject=") {
		t.Errorf("expected recipient and subject to remain, got %q", link)
	}
}

func TestSendTestMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := SendTestMessage(newTestSlack(srv.URL, srv.Client())); err != nil {
		t.Fatalf("SendTestMessage = %v", err)
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 HTTP call, got %d", c)
	}
}
