package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"text/template"
	"time"
)

// SlackNotifier posts notices to a Slack incoming webhook. The message
// text comes from the registered template's Text body, rendered with the
// notification data; a pre-rendered Body wins when set.
type SlackNotifier struct {
	WebhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Send(noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack notification requires a webhook URL")
	}

	text := notification.Body
	if text == "" && noticeTemplate.Text != "" {
		tmpl, err := template.New("slack").Parse(noticeTemplate.Text)
		if err != nil {
			slog.Error("Failed to parse Slack template", "err", err)
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			slog.Error("Failed to execute Slack template", "err", err)
			return err
		}
		text = buf.String()
	}
	if text == "" {
		return fmt.Errorf("slack notification requires 'Body' or a text template")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(s.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		slog.Error("Failed to post Slack webhook", "err", err)
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	slog.Info("Slack notice sent", "noticeType", noticeType)
	return nil
}
