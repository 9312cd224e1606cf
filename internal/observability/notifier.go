package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Notifier delivers variance alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

const slackTimeout = 10 * time.Second

// slackNotifier posts Block Kit messages to a Slack incoming webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts to the given webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: slackTimeout},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts one message covering every alert. An empty slice is a no-op.
func (s *slackNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL is not configured")
	}

	body, err := json.Marshal(buildSlackMessage(alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// buildSlackMessage groups alerts by project, one section per project.
func buildSlackMessage(alerts []Alert) slackMessage {
	byProject := make(map[string][]Alert)
	for _, a := range alerts {
		byProject[a.ProjectID] = append(byProject[a.ProjectID], a)
	}
	projects := make([]string, 0, len(byProject))
	for p := range byProject {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("Schedule Variance Alerts (%d)", len(alerts))},
	}}

	for i, project := range projects {
		if i > 0 {
			blocks = append(blocks, slackBlock{Type: "divider"})
		}
		title := project
		if title == "" {
			title = "(unnamed)"
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "*%s*", title)
		for _, a := range byProject[project] {
			fmt.Fprintf(&sb, "\n%s *[%s]* %s _(%s)_",
				severityEmoji(a.Severity),
				strings.ToUpper(string(a.Severity)),
				a.Message,
				a.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC"),
			)
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: sb.String()},
		})
	}

	return slackMessage{Blocks: blocks}
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}
