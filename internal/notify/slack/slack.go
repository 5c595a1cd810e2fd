// Package slack sends triage notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/argus/internal/triage"
)

const (
	maxAnalysisLen = 3000
	maxHeaderLen   = 150
	httpTimeout    = 10 * time.Second
)

// Notifier is a triage.Sink posting outcomes to a Slack webhook.
type Notifier struct {
	webhookURL string
	notifyAll  bool
	logger     log.Logger
	client     *http.Client
}

// New creates a Slack notifier. Only escalations are sent unless notifyAll is
// set. If webhookURL is empty, Report is a no-op.
func New(webhookURL string, notifyAll bool, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		notifyAll:  notifyAll,
		logger:     logger,
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Name implements triage.Sink.
func (n *Notifier) Name() string { return "slack" }

// Report posts the outcome if it is an escalation, or any outcome when the
// notifier was created with notifyAll.
func (n *Notifier) Report(ctx context.Context, o *triage.Outcome) error {
	if n.webhookURL == "" {
		return nil
	}
	if !n.notifyAll && o.Verdict != triage.VerdictEscalate {
		return nil
	}

	body, err := json.Marshal(buildMessage(o))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "alert_id", o.AlertID, "verdict", o.Verdict)
	return nil
}

func buildMessage(o *triage.Outcome) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(o),
			{"type": "divider"},
			fieldsBlock(o),
			{"type": "divider"},
			analysisBlock(o),
			{"type": "divider"},
			contextBlock(o),
		},
	}
}

func headerBlock(o *triage.Outcome) map[string]any {
	title := "Escalation Required"
	switch {
	case o.Failed():
		title = "Triage Failed"
	case o.Verdict == triage.VerdictMonitor:
		title = "Logged for Review"
	case o.Verdict == triage.VerdictUnclassified:
		title = "Analysis Inconclusive"
	}

	subject := o.RuleDescription
	if subject == "" {
		subject = "alert " + o.AlertID
	}
	text := fmt.Sprintf("%s %s: %s", verdictEmoji(o.Status, o.Verdict), title, subject)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": truncate(text, maxHeaderLen),
		},
	}
}

func fieldsBlock(o *triage.Outcome) map[string]any {
	verdict := string(o.Verdict)
	if o.Failed() {
		verdict = "error: " + string(o.ErrorKind)
	}
	agent := o.Agent
	if agent == "" {
		agent = "-"
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Verdict:* %s", verdict),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Rule level:* %d", o.RuleLevel),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Agent:* %s", agent),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", o.Duration),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Model:* %s", shortModel(o.Model)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Tokens:* %d", o.InputTokens+o.OutputTokens),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func analysisBlock(o *triage.Outcome) map[string]any {
	text := truncate(o.Analysis, maxAnalysisLen)
	if o.Failed() {
		text = truncate(o.Error, maxAnalysisLen)
	}
	if text == "" {
		text = "_No analysis available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Analysis*\n\n%s", text),
		},
	}
}

func contextBlock(o *triage.Outcome) map[string]any {
	ts := o.CompletedAt
	if ts.IsZero() {
		ts = o.StartedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("argus • %s alert %s • %s", o.Source, o.AlertID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func verdictEmoji(status triage.Status, verdict triage.Verdict) string {
	if status == triage.StatusError {
		return "\U0001f534" // red circle
	}
	switch verdict {
	case triage.VerdictEscalate:
		return "\U0001f534" // red circle
	case triage.VerdictUnclassified:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

// dateModelRe matches model names ending with a YYYYMMDD date suffix.
var dateModelRe = regexp.MustCompile(`-\d{8}$`)

func shortModel(model string) string {
	return dateModelRe.ReplaceAllString(model, "")
}

// truncate limits s to limit characters, cutting on a rune boundary.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-3]) + "..."
}
