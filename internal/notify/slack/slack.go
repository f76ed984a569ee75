// Package slack posts admissions at or above a severity threshold to a Slack
// incoming webhook so the on-duty nurse sees them before the patient reaches
// the desk.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/kiosk/internal/triage"
)

const (
	maxJustificationLen = 1500
	httpTimeout         = 10 * time.Second
)

// Notifier sends admissions to a Slack webhook.
type Notifier struct {
	webhookURL string
	minTier    triage.Tier
	client     *http.Client
	logger     log.Logger
}

// New creates a Slack notifier that posts admissions whose tier is at least
// as severe as minTier (Urgent when minTier is empty). If webhookURL is
// empty, Notify is a no-op.
func New(webhookURL string, minTier triage.Tier, logger log.Logger) *Notifier {
	if minTier == "" {
		minTier = triage.TierUrgent
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		minTier:    minTier,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Name implements triage.Notifier.
func (n *Notifier) Name() string { return "slack" }

// Notify posts the admission if it meets the severity threshold. The patient
// name is never sent and the national id is masked.
func (n *Notifier) Notify(ctx context.Context, a *triage.Admission) error {
	if n.webhookURL == "" || !n.wants(a.Tier) {
		return nil
	}

	body, err := json.Marshal(buildMessage(a))
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

	n.logger.Info(ctx, "slack notification sent", "admission_id", a.ID, "tier", a.Tier)
	return nil
}

func (n *Notifier) wants(t triage.Tier) bool {
	r := t.Rank()
	return r > 0 && r <= n.minTier.Rank()
}

func buildMessage(a *triage.Admission) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(a),
			{"type": "divider"},
			fieldsBlock(a),
			{"type": "divider"},
			justificationBlock(a),
			{"type": "divider"},
			contextBlock(a),
		},
	}
}

func headerBlock(a *triage.Admission) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s Triagem: %s", tierEmoji(a.Tier), a.Tier.Label()),
		},
	}
}

func fieldsBlock(a *triage.Admission) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Prioridade:* %s", a.Tier.Label()),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Paciente:* %s", maskNationalID(a.NationalID)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Triagem nº:* %d", a.TriageID),
		},
	}
	if a.MatchedPhrase != "" {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Regra:* %s", a.MatchedPhrase),
		})
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func justificationBlock(a *triage.Admission) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Justificativa*\n\n%s", truncate(a.Justification, maxJustificationLen)),
		},
	}
}

func contextBlock(a *triage.Admission) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("kiosk • admissão %s • %s", a.ID, a.AdmittedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func tierEmoji(t triage.Tier) string {
	switch t {
	case triage.TierEmergency:
		return "\U0001f534" // red circle
	case triage.TierUrgent:
		return "\U0001f7e0" // orange circle
	case triage.TierPriority:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

// maskNationalID keeps the first three and last two digits: 111.***.***-44.
func maskNationalID(nid string) string {
	if len(nid) != 11 {
		return "***"
	}
	return nid[:3] + ".***.***-" + nid[9:]
}

// truncate caps s at limit bytes, cutting on a rune boundary so accented
// text stays valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
