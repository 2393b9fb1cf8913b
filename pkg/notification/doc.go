// Package notification provides a unified interface for sending notifications via multiple channels.
//
// This package defines the Notifier interface and provides implementations for email (SMTP)
// and Slack webhooks, plus a mock notifier for testing. A NotificationManager fans a single
// notice out to every channel registered for its type, so callers never address channels
// directly.
//
// # Features
//
//   - Unified Notifier interface for all notification types
//   - Email via SMTP (with TLS support)
//   - Slack incoming webhooks
//   - HTML and plain text email templates
//   - CC/BCC support for emails
//   - Mock notifier for testing
//   - Template registry keyed by notice type and channel
//
// # Core Interface
//
//	type Notifier interface {
//	    Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
//	}
//
// All notifiers implement this interface, making them interchangeable.
//
// # Manager Setup
//
// The usual entry point is the options-based constructor:
//
//	import "github.com/tendant/simple-support/pkg/notification"
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//	    "https://app.example.com",
//	    notification.WithSMTP(notification.SMTPConfig{
//	        Host:     "smtp.example.com",
//	        Port:     587,
//	        TLS:      true,
//	        Username: "notifier",
//	        Password: "app-password",
//	        From:     "noreply@example.com",
//	    }),
//	    notification.WithDefaultTemplates(),
//	    notification.WithSlackWebhook("https://hooks.slack.com/services/YOUR/WEBHOOK/URL"),
//	    notification.WithSessionSlackTemplates(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Sending a notice then fans out to every channel registered for its type.
// A failing channel does not block the others; Send returns the combined
// failures after attempting them all:
//
//	err = nm.Send(notification.SupportSessionStarted, notification.NotificationData{
//	    To: "security@example.com",
//	    Data: map[string]string{
//	        "OperatorEmail":    "agent@example.com",
//	        "TargetEntityName": "TechCorp",
//	        "TargetEntityId":   "company-123",
//	        "Reason":           "Investigating a billing discrepancy",
//	    },
//	})
//
// When the manager was constructed with a base URL, {{.BaseUrl}} is injected into the
// template data automatically so notices can link back into the product.
//
// # Manual Registration
//
// Channels and templates can also be wired by hand:
//
//	nm := notification.NewNotificationManager("")
//	nm.RegisterNotifier(notification.EmailSystem, emailNotifier)
//	err := nm.RegisterNotification(notification.SupportSessionStarted, notification.EmailSystem,
//	    notification.NoticeTemplate{
//	        Subject: "Support session started",
//	        Text:    "{{.OperatorEmail}} started acting as {{.TargetEntityName}}",
//	        Html:    "<p>{{.OperatorEmail}} started acting as <b>{{.TargetEntityName}}</b></p>",
//	    })
//
// A template must have a non-empty Subject and at least one of Text or Html.
//
// # Email Notifications (SMTP)
//
//	emailNotifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
//	    Host:     "localhost",
//	    Port:     1025,  // Mailpit for local development
//	    TLS:      false,
//	    Username: "",    // Leave empty for no auth
//	    Password: "",
//	    From:     "dev@localhost",
//	})
//
// ## Email with CC and BCC
//
//	data := notification.NotificationData{
//	    To: "security@example.com",
//	    Data: map[string]string{
//	        "cc":  "compliance@example.com, oncall@example.com",  // Comma-separated
//	        "bcc": "archive@example.com",
//	    },
//	}
//
// ## HTML Email with Fallback
//
// When both Text and Html are provided, the plain text body is set first and the HTML
// body is attached as an alternative, so text-only clients still get a readable notice.
//
// # Slack Notifications
//
//	slackNotifier := notification.NewSlackNotifier("https://hooks.slack.com/services/YOUR/WEBHOOK/URL")
//
// The Text template is rendered with the notification data and posted as the webhook
// message. When NotificationData.Body is set it is posted verbatim instead.
//
// # Mock Notifier (Testing)
//
//	mockNotifier := &notification.MockNotifier{}
//	nm.RegisterNotifier(notification.EmailSystem, mockNotifier)
//
//	nm.Send(notification.SupportSessionStarted, data)
//
//	if len(mockNotifier.SentNotifications) != 1 {
//	    t.Error("Expected 1 notification")
//	}
//	sent := mockNotifier.SentNotifications[0]
//	if sent.To != "security@example.com" {
//	    t.Errorf("Unexpected recipient: %s", sent.To)
//	}
//
// # Template System
//
// Templates use Go template syntax and are rendered with NotificationData.Data:
//
//	template := notification.NoticeTemplate{
//	    Subject: "Support session ended",
//	    Text: `
//	{{.OperatorEmail}} stopped acting as {{.TargetEntityName}}.
//	Duration: {{.DurationSeconds}} seconds
//	{{if .Summary}}Summary: {{.Summary}}{{end}}
//	`,
//	}
//
// The built-in session templates live under templates/email/ and are embedded into the
// binary, so deployments need no template files on disk.
//
// # Dependencies
//
//   - github.com/wneessen/go-mail (SMTP client)
//   - Go standard library (html/template, text/template, net/http)
//
// # Extending with Custom Notifiers
//
// Implement the Notifier interface and register it under its own system name:
//
//	type PagerNotifier struct {
//	    APIKey string
//	}
//
//	func (p *PagerNotifier) Send(noticeType notification.NoticeType, data notification.NotificationData, template notification.NoticeTemplate) error {
//	    // Render template.Text and page the on-call rotation.
//	    return nil
//	}
//
//	nm.RegisterNotifier("pager", &PagerNotifier{APIKey: apiKey})
package notification
