package notification

import (
	"errors"
	"fmt"
	"log/slog"
)

// NotificationManager manages notifiers and notice templates.
type NotificationManager struct {
	baseUrl              string
	notifiers            map[NotificationSystem]Notifier                      // Map of notification systems to their Notifier implementations
	notificationRegistry map[NoticeType]map[NotificationSystem]NoticeTemplate // Registry of notice templates per system
}

// NewNotificationManager creates and returns a new NotificationManager.
// baseUrl, when set, is exposed to templates as {{.BaseUrl}} so notices
// can link back into the product.
func NewNotificationManager(baseUrl string) *NotificationManager {
	return &NotificationManager{
		baseUrl:              baseUrl,
		notifiers:            make(map[NotificationSystem]Notifier),
		notificationRegistry: make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// RegisterNotification adds a notice template to the registry.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	// Validate input
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if template.Subject == "" {
		return fmt.Errorf("invalid input: template subject cannot be empty")
	}
	if template.Text == "" && template.Html == "" {
		return fmt.Errorf("invalid input: template requires text or HTML content")
	}

	// Check if the notice type exists in the registry
	if _, exists := nm.notificationRegistry[noticeType]; !exists {
		nm.notificationRegistry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}

	// Add or update the template for the system under the given notice type
	nm.notificationRegistry[noticeType][system] = template
	return nil
}

// Send delivers the notice on every system it has a template registered
// for. A failing channel does not block the others; the combined
// failures come back as one error.
func (nm *NotificationManager) Send(noticeType NoticeType, notification NotificationData) error {
	systemTemplates, exists := nm.notificationRegistry[noticeType]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}

	if nm.baseUrl != "" {
		if notification.Data == nil {
			notification.Data = make(map[string]string)
		}
		if _, exists := notification.Data["BaseUrl"]; !exists {
			notification.Data["BaseUrl"] = nm.baseUrl
		}
	}

	var failures []error
	for system, template := range systemTemplates {
		notifier, exists := nm.notifiers[system]
		if !exists {
			failures = append(failures, fmt.Errorf("no notifier registered for system: %s", system))
			continue
		}
		if err := notifier.Send(noticeType, notification, template); err != nil {
			slog.Error("Notification channel failed", "system", system, "noticeType", noticeType, "err", err)
			failures = append(failures, fmt.Errorf("%s: %w", system, err))
		}
	}
	return errors.Join(failures...)
}
