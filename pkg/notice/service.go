package notice

import (
	"github.com/tendant/simple-support/pkg/notification"
)

// Notice types published by the support session lifecycle.
const (
	SupportSessionStarted = notification.SupportSessionStarted
	SupportSessionEnded   = notification.SupportSessionEnded
)

// Config holds email delivery configuration
type Config struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

// NewNotificationManager builds a notification manager wired for support
// session notices. Email delivery is always configured; a Slack channel is
// added when slackWebhookURL is non-empty.
func NewNotificationManager(baseUrl string, config Config, slackWebhookURL string) (*notification.NotificationManager, error) {
	opts := []notification.NotificationManagerOption{
		notification.WithSMTP(notification.SMTPConfig{
			Host:     config.Host,
			Port:     config.Port,
			TLS:      config.TLS,
			Username: config.Username,
			Password: config.Password,
			From:     config.From,
		}),
		notification.WithDefaultTemplates(),
	}

	if slackWebhookURL != "" {
		opts = append(opts,
			notification.WithSlackWebhook(slackWebhookURL),
			notification.WithSessionSlackTemplates(),
		)
	}

	return notification.NewNotificationManagerWithOptions(baseUrl, opts...)
}
