package notification

// NotificationSystem represents a delivery channel (e.g., email, SMS, Slack).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., "support_session_started").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"
	SlackSystem NotificationSystem = "slack"

	// Notice types sent by the support subsystem
	SupportSessionStarted NoticeType = "support_session_started"
	SupportSessionEnded   NoticeType = "support_session_ended"
)

// NoticeTemplate holds the subject and body templates registered for one
// notice on one system. Text and Html are Go template sources rendered
// with NotificationData.Data; at least one of them must be non-empty.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type NotificationData struct {
	To      string            // Recipient identifier (e.g., email address, Slack channel)
	Subject string            // Optional: overrides the template subject when set
	Body    string            // Optional: pre-rendered content for notifiers used without a template
	Data    map[string]string // Template data (e.g., operator email, target company)
}

// Notifier delivers one notice over one system.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
