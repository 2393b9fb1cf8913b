package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Embedded template missing", "filename", filename, "err", err)
		return ""
	}
	return string(content)
}

// NotificationManagerOption configures a NotificationManager during construction.
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier delivering through the given SMTP relay.
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		notifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, notifier)
		return nil
	}
}

// WithSlackWebhook adds a Slack notifier posting to the provided incoming webhook
func WithSlackWebhook(webhookURL string) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(SlackSystem, NewSlackNotifier(webhookURL))
		return nil
	}
}

// WithSessionStartedTemplate registers the session-started email template
func WithSessionStartedTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(SupportSessionStarted, EmailSystem, NoticeTemplate{
			Subject: "Support session started",
			Html:    loadTemplate("templates/email/support_session_started.html"),
		})
	}
}

// WithSessionEndedTemplate registers the session-ended email template
func WithSessionEndedTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(SupportSessionEnded, EmailSystem, NoticeTemplate{
			Subject: "Support session ended",
			Html:    loadTemplate("templates/email/support_session_ended.html"),
		})
	}
}

// WithSessionSlackTemplates registers compact Slack messages for both
// session lifecycle notices
func WithSessionSlackTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		err := nm.RegisterNotification(SupportSessionStarted, SlackSystem, NoticeTemplate{
			Subject: "Support session started",
			Text:    ":eyes: {{.OperatorEmail}} started acting as *{{.TargetEntityName}}* ({{.TargetEntityId}}). Reason: {{.Reason}}",
		})
		if err != nil {
			return err
		}
		return nm.RegisterNotification(SupportSessionEnded, SlackSystem, NoticeTemplate{
			Subject: "Support session ended",
			Text:    ":white_check_mark: {{.OperatorEmail}} stopped acting as *{{.TargetEntityName}}* after {{.DurationSeconds}}s.",
		})
	}
}

// WithDefaultTemplates registers the email templates for both session
// lifecycle notices.
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		if err := WithSessionStartedTemplate()(nm); err != nil {
			return err
		}
		return WithSessionEndedTemplate()(nm)
	}
}

// NewNotificationManagerWithOptions builds a manager and applies the options
// in order, stopping at the first failure.
func NewNotificationManagerWithOptions(baseUrl string, opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := NewNotificationManager(baseUrl)
	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}
	return nm, nil
}
