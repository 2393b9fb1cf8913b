package notice

import (
	"testing"

	"github.com/tendant/simple-support/pkg/notification"
)

func testConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     1025,
		TLS:      false,
		Username: "",
		Password: "",
		From:     "dev@localhost",
	}
}

func TestNewNotificationManager(t *testing.T) {
	nm, err := NewNotificationManager("", testConfig(), "")
	if err != nil {
		t.Fatalf("NewNotificationManager failed: %v", err)
	}

	// Swap the email channel for a mock so Send exercises the registered
	// session templates without reaching an SMTP server.
	mock := &notification.MockNotifier{}
	nm.RegisterNotifier(notification.EmailSystem, mock)

	err = nm.Send(SupportSessionStarted, notification.NotificationData{
		To: "security@example.com",
		Data: map[string]string{
			"SessionId":        "b5c3f1d2-0000-0000-0000-000000000001",
			"OperatorEmail":    "agent@example.com",
			"TargetEntityId":   "company-123",
			"TargetEntityName": "TechCorp",
			"Reason":           "Investigating a billing discrepancy",
			"StartedAt":        "2024-01-15T10:00:00Z",
		},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(mock.SentNotifications) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(mock.SentNotifications))
	}
	if mock.SentNotifications[0].To != "security@example.com" {
		t.Errorf("Unexpected recipient: %s", mock.SentNotifications[0].To)
	}

	err = nm.Send(SupportSessionEnded, notification.NotificationData{
		To: "security@example.com",
		Data: map[string]string{
			"SessionId":        "b5c3f1d2-0000-0000-0000-000000000001",
			"OperatorEmail":    "agent@example.com",
			"TargetEntityId":   "company-123",
			"TargetEntityName": "TechCorp",
			"EndedAt":          "2024-01-15T10:25:00Z",
			"DurationSeconds":  "1500",
		},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(mock.SentNotifications) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(mock.SentNotifications))
	}
}

func TestNewNotificationManagerWithSlack(t *testing.T) {
	nm, err := NewNotificationManager("https://app.example.com", testConfig(), "https://hooks.slack.com/services/T000/B000/XXXX")
	if err != nil {
		t.Fatalf("NewNotificationManager failed: %v", err)
	}

	emailMock := &notification.MockNotifier{}
	slackMock := &notification.MockNotifier{}
	nm.RegisterNotifier(notification.EmailSystem, emailMock)
	nm.RegisterNotifier(notification.SlackSystem, slackMock)

	err = nm.Send(SupportSessionStarted, notification.NotificationData{
		To: "security@example.com",
		Data: map[string]string{
			"OperatorEmail":    "agent@example.com",
			"TargetEntityId":   "company-123",
			"TargetEntityName": "TechCorp",
			"Reason":           "Customer escalation",
		},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(emailMock.SentNotifications) != 1 {
		t.Errorf("Email channel expected 1 notification, got %d", len(emailMock.SentNotifications))
	}
	if len(slackMock.SentNotifications) != 1 {
		t.Errorf("Slack channel expected 1 notification, got %d", len(slackMock.SentNotifications))
	}
	if got := emailMock.SentNotifications[0].Data["BaseUrl"]; got != "https://app.example.com" {
		t.Errorf("BaseUrl not injected, got %q", got)
	}
}
