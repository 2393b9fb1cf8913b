package notification

// MockNotifier records everything it is asked to send, for tests.
// When Err is set, Send still records the notification and then fails
// with it, so partial-failure paths can be exercised.
type MockNotifier struct {
	SentNotifications []NotificationData
	SentNoticeTypes   []NoticeType
	Err               error
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentNoticeTypes = append(m.SentNoticeTypes, noticeType)
	return m.Err
}

// Reset clears the recorded sends and the injected error.
func (m *MockNotifier) Reset() {
	m.SentNotifications = nil
	m.SentNoticeTypes = nil
	m.Err = nil
}
