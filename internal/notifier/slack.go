package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/leadmail/internal/compose"
	"github.com/amishk599/leadmail/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// Slack rejects section text longer than 3000 characters.
const (
	maxSectionLen = 3000
	maxPreviewLen = 2800
)

// SlackNotifier sends drafted applications to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	interval   time.Duration // pause between consecutive messages
}

// NewSlackNotifier returns a notifier that posts each drafted email to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		interval:   500 * time.Millisecond,
	}
}

// Notify sends each drafted email as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(results []model.LeadResult) error {
	drafts := Drafts(results)
	if len(drafts) == 0 {
		return nil
	}

	failures := 0
	for i, r := range drafts {
		if i > 0 && s.interval > 0 {
			time.Sleep(s.interval)
		}

		if err := s.sendMessage(r); err != nil {
			s.logger.Error("slack notification failed", "to", r.Lead.Email, "subject", r.Classification.EmailSubject, "error", err)
			failures++
		}
	}

	sent := len(drafts) - failures
	if failures == len(drafts) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(r model.LeadResult) error {
	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack message sent", "to", r.Lead.Email, "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack message sent", "to", r.Lead.Email)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a sample drafted application to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	test := model.LeadResult{
		Lead: model.Lead{
			Email:       "hiring@example.com",
			Phone:       "555-0100",
			Description: "Junior developer position at Example Co. No experience required.",
		},
		Classification: model.Classification{
			IsEntryLevel: true,
			EmailSubject: "Application for Junior developer Position",
			Reason:       "Test notification, integration verified",
			EmailBody:    "Dear Hiring Manager,\n\nThis is a test message from leadmail.\n\nBest regards,",
		},
		Source:      "test",
		ProcessedAt: time.Now(),
	}
	return n.Notify([]model.LeadResult{test})
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// composeLink renders a mailto link that fits one section. When the encoded
// body makes it too long, the body is left for the recipient to paste in, and
// then the subject.
func composeLink(to, subject, body string) string {
	for _, url := range []string{
		compose.MailtoURL(to, subject, body),
		compose.MailtoURL(to, subject, ""),
		compose.MailtoURL(to, "", ""),
	} {
		link := "<" + url + "|Compose email>"
		if len(link) <= maxSectionLen {
			return link
		}
	}
	return "Compose email to " + to
}

func buildPayload(r model.LeadResult) slackPayload {
	c := r.Classification
	phone := r.Lead.Phone
	if phone == "" {
		phone = "n/a"
	}

	return slackPayload{Blocks: []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: truncate("✉️ "+c.EmailSubject, 150)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*To:*\n" + r.Lead.Email},
				{Type: "mrkdwn", Text: "*Phone:*\n" + phone},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Reason:*\n" + c.Reason},
				{Type: "mrkdwn", Text: "*Source:*\n" + r.Source},
			},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "```" + truncate(c.EmailBody, maxPreviewLen) + "```"},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: composeLink(r.Lead.Email, c.EmailSubject, c.EmailBody)},
		},
		{Type: "divider"},
	}}
}
