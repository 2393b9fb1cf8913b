package support

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-support/pkg/company"
	"github.com/tendant/simple-support/pkg/errors"
	"github.com/tendant/simple-support/pkg/notification"
	"github.com/tendant/simple-support/pkg/roles"
)

const (
	testOperatorID = "op-1000"
	testAdminID    = "admin-2000"
	testCompanyA   = "11111111-1111-1111-1111-111111111111"
	testCompanyB   = "22222222-2222-2222-2222-222222222222"
)

// recordingNotifier captures notices behind a mutex so tests can observe
// the async sends safely.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []notification.NotificationData
	types []notification.NoticeType
}

func (n *recordingNotifier) Send(noticeType notification.NoticeType, data notification.NotificationData, template notification.NoticeTemplate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, data)
	n.types = append(n.types, noticeType)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) notice(i int) (notification.NoticeType, notification.NotificationData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.types[i], n.sent[i]
}

func newTestService(opts ...SessionServiceOption) *SessionService {
	companyRepo := company.NewInMemoryRepository()
	companyRepo.Seed(testCompanyA, "TechCorp")
	companyRepo.Seed(testCompanyB, "StartupXYZ")

	return NewSessionService(
		NewInMemoryRepository(),
		company.NewService(companyRepo),
		roles.NewResolver(),
		opts...,
	)
}

func startParams() StartSessionParams {
	return StartSessionParams{
		OperatorID:               testOperatorID,
		OperatorEmail:            "agent@example.com",
		OperatorRole:             "support",
		TargetEntityID:           testCompanyA,
		Reason:                   "Investigating a billing discrepancy",
		EstimatedDurationMinutes: 30,
	}
}

func TestStartSession(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	session, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, testOperatorID, session.OperatorID)
	assert.Equal(t, "agent@example.com", session.OperatorEmail)
	assert.Equal(t, testCompanyA, session.TargetEntityID)
	assert.Equal(t, "TechCorp", session.TargetEntityName)
	assert.Equal(t, SessionStatusActive, session.Status)
	assert.Equal(t, "Investigating a billing discrepancy", session.Reason)
	assert.Equal(t, 30, session.EstimatedDurationMinutes)
	assert.Equal(t, "support", session.Metadata.OperatorRole)
	assert.Nil(t, session.EndedAt)
	assert.False(t, session.StartedAt.IsZero())

	// The start itself is the first trail entry
	require.Len(t, session.Actions, 1)
	marker := session.Actions[0]
	assert.Equal(t, ActionSessionStarted, marker.Action)
	assert.Equal(t, "support-session", marker.Resource)
	assert.Equal(t, session.ID, marker.ResourceID)
	assert.Equal(t, "/api/support/act-as", marker.Path)
	assert.Equal(t, "Investigating a billing discrepancy", marker.Details["reason"])
	assert.Equal(t, "TechCorp", marker.Details["targetEntityName"])
}

func TestStartSessionValidation(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*StartSessionParams)
		wantCode errors.ErrorCode
	}{
		{
			name:     "missing operator",
			mutate:   func(p *StartSessionParams) { p.OperatorID = "" },
			wantCode: errors.ErrCodeUnauthorized,
		},
		{
			name:     "missing target",
			mutate:   func(p *StartSessionParams) { p.TargetEntityID = "  " },
			wantCode: errors.ErrCodeMissingRequired,
		},
		{
			name:     "missing reason",
			mutate:   func(p *StartSessionParams) { p.Reason = "" },
			wantCode: errors.ErrCodeMissingRequired,
		},
		{
			name:     "negative estimate",
			mutate:   func(p *StartSessionParams) { p.EstimatedDurationMinutes = -5 },
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "unknown role",
			mutate:   func(p *StartSessionParams) { p.OperatorRole = "superuser" },
			wantCode: errors.ErrCodeRoleUnknown,
		},
		{
			name:     "tenant role cannot act as",
			mutate:   func(p *StartSessionParams) { p.OperatorRole = "recruiter" },
			wantCode: errors.ErrCodeActAsNotPermitted,
		},
		{
			name:     "unknown target",
			mutate:   func(p *StartSessionParams) { p.TargetEntityID = "99999999-9999-9999-9999-999999999999" },
			wantCode: errors.ErrCodeTargetNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := startParams()
			tt.mutate(&params)

			_, err := service.StartSession(ctx, params)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}
}

func TestStartSessionRestrictedOperator(t *testing.T) {
	companyRepo := company.NewInMemoryRepository()
	companyRepo.Seed(testCompanyA, "TechCorp")
	service := NewSessionService(
		NewInMemoryRepository(),
		company.NewService(companyRepo),
		roles.NewResolver(roles.WithRestrictedOperators([]string{testOperatorID})),
	)

	_, err := service.StartSession(context.Background(), startParams())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeActAsNotPermitted, errors.GetCode(err))
}

func TestStartSessionTargetAllowList(t *testing.T) {
	companyRepo := company.NewInMemoryRepository()
	companyRepo.Seed(testCompanyA, "TechCorp")
	companyRepo.Seed(testCompanyB, "StartupXYZ")
	service := NewSessionService(
		NewInMemoryRepository(),
		company.NewService(companyRepo),
		roles.NewResolver(roles.WithAllowedTargets([]string{testCompanyB})),
	)

	params := startParams()
	_, err := service.StartSession(context.Background(), params)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTargetNotAllowed, errors.GetCode(err))

	params.TargetEntityID = testCompanyB
	session, err := service.StartSession(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, testCompanyB, session.TargetEntityID)
}

func TestStartSessionSecondActive(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	_, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	params := startParams()
	params.TargetEntityID = testCompanyB
	_, err = service.StartSession(ctx, params)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeActiveSessionExists, errors.GetCode(err))
}

func TestStartSessionConcurrent(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.StartSession(ctx, startParams())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		require.Equal(t, errors.ErrCodeActiveSessionExists, errors.GetCode(err))
		conflicts++
	}

	assert.Equal(t, 1, successes, "exactly one concurrent start must win")
	assert.Equal(t, attempts-1, conflicts)
}

func TestEndSession(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	started, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	ended, err := service.EndSession(ctx, EndSessionParams{
		CallerID: testOperatorID,
		Summary:  "Fixed the billing configuration",
	})
	require.NoError(t, err)

	assert.Equal(t, started.ID, ended.ID)
	assert.Equal(t, SessionStatusEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)
	assert.False(t, ended.EndedAt.Before(ended.StartedAt))
	assert.Equal(t, "Fixed the billing configuration", ended.Metadata.Summary)
	assert.GreaterOrEqual(t, ended.Metadata.DurationSeconds, int64(0))

	// The operator is no longer acting
	current, err := service.CurrentSession(ctx, testOperatorID)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestEndSessionNoActive(t *testing.T) {
	service := newTestService()

	_, err := service.EndSession(context.Background(), EndSessionParams{CallerID: testOperatorID})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoActiveSession, errors.GetCode(err))
}

func TestEndSessionExplicit(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	started, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	// A stranger cannot end someone else's session
	_, err = service.EndSession(ctx, EndSessionParams{
		SessionID: started.ID,
		CallerID:  "op-other",
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeForbidden, errors.GetCode(err))

	// An admin can
	ended, err := service.EndSession(ctx, EndSessionParams{
		SessionID:     started.ID,
		CallerID:      testAdminID,
		CallerIsAdmin: true,
		Summary:       "Ended by admin",
	})
	require.NoError(t, err)
	assert.Equal(t, SessionStatusEnded, ended.Status)

	// Ending again conflicts
	_, err = service.EndSession(ctx, EndSessionParams{
		SessionID: started.ID,
		CallerID:  testOperatorID,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSessionEnded, errors.GetCode(err))

	// Unknown session id
	_, err = service.EndSession(ctx, EndSessionParams{
		SessionID: "00000000-0000-0000-0000-000000000000",
		CallerID:  testOperatorID,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestTrailFrozenAfterEnd(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	started, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	_, err = service.EndSession(ctx, EndSessionParams{CallerID: testOperatorID})
	require.NoError(t, err)

	err = service.repo.AppendAction(ctx, started.ID, SessionAction{
		Timestamp: time.Now().UTC(),
		Action:    ActionRead,
		Resource:  "candidates",
		Method:    "GET",
		Path:      "/api/candidates",
	})
	require.ErrorIs(t, err, ErrSessionEnded)

	// The stored trail still holds only the start marker
	session, err := service.GetSession(ctx, started.ID, testOperatorID, false)
	require.NoError(t, err)
	require.Len(t, session.Actions, 1)
	assert.Equal(t, ActionSessionStarted, session.Actions[0].Action)
}

func TestSwitchTarget(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	first, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	second, err := service.SwitchTarget(ctx, SwitchTargetParams{
		OperatorID:    testOperatorID,
		OperatorEmail: "agent@example.com",
		OperatorRole:  "support",
		NewTargetID:   testCompanyB,
		Reason:        "Escalated to the new tenant",
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, testCompanyB, second.TargetEntityID)
	assert.Equal(t, "StartupXYZ", second.TargetEntityName)
	assert.Equal(t, SessionStatusActive, second.Status)

	// The new session's start marker records where it switched from
	require.Len(t, second.Actions, 1)
	assert.Equal(t, "/api/support/switch-target", second.Actions[0].Path)
	assert.Equal(t, first.ID, second.Actions[0].Details["switchedFromSessionId"])

	// The old session ended with a system note
	old, err := service.GetSession(ctx, first.ID, testOperatorID, false)
	require.NoError(t, err)
	assert.Equal(t, SessionStatusEnded, old.Status)
	assert.Equal(t, fmt.Sprintf("switched to target %s", testCompanyB), old.Metadata.EndNote)
	assert.Empty(t, old.Metadata.Summary)
}

func TestSwitchTargetInheritsReason(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	_, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	second, err := service.SwitchTarget(ctx, SwitchTargetParams{
		OperatorID:    testOperatorID,
		OperatorEmail: "agent@example.com",
		OperatorRole:  "support",
		NewTargetID:   testCompanyB,
	})
	require.NoError(t, err)
	assert.Equal(t, "Investigating a billing discrepancy", second.Reason)
}

func TestSwitchTargetNoActive(t *testing.T) {
	service := newTestService()

	_, err := service.SwitchTarget(context.Background(), SwitchTargetParams{
		OperatorID:   testOperatorID,
		OperatorRole: "support",
		NewTargetID:  testCompanyB,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoActiveSession, errors.GetCode(err))
}

func TestSwitchTargetIncomplete(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	first, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	// The new target does not exist: the end half commits, the start half
	// fails, and the operator is reported session-less.
	_, err = service.SwitchTarget(ctx, SwitchTargetParams{
		OperatorID:   testOperatorID,
		OperatorRole: "support",
		NewTargetID:  "99999999-9999-9999-9999-999999999999",
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSwitchIncomplete, errors.GetCode(err))

	var structured *errors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, first.ID, structured.Details["ended_session_id"])

	// No active session remains; the operator must re-issue act-as
	current, err := service.CurrentSession(ctx, testOperatorID)
	require.NoError(t, err)
	assert.Nil(t, current)

	old, err := service.GetSession(ctx, first.ID, testOperatorID, false)
	require.NoError(t, err)
	assert.Equal(t, SessionStatusEnded, old.Status)
}

func TestEmergencyExit(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	started, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	ended, err := service.EmergencyExit(ctx, testOperatorID)
	require.NoError(t, err)

	assert.Equal(t, started.ID, ended.ID)
	assert.Equal(t, SessionStatusEnded, ended.Status)
	assert.Empty(t, ended.Metadata.Summary)
	assert.Equal(t, "emergency exit", ended.Metadata.EndNote)

	_, err = service.EmergencyExit(ctx, testOperatorID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoActiveSession, errors.GetCode(err))
}

func TestCurrentSession(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	// No session: (nil, nil), not an error
	current, err := service.CurrentSession(ctx, testOperatorID)
	require.NoError(t, err)
	assert.Nil(t, current)

	started, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	current, err = service.CurrentSession(ctx, testOperatorID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, started.ID, current.ID)
	assert.Nil(t, current.Actions, "current-session lookups do not load the trail")
}

func TestGetSession(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	started, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	// Owner reads it with the trail
	session, err := service.GetSession(ctx, started.ID, testOperatorID, false)
	require.NoError(t, err)
	assert.Len(t, session.Actions, 1)

	// Admin reads it too
	_, err = service.GetSession(ctx, started.ID, testAdminID, true)
	require.NoError(t, err)

	// A stranger does not
	_, err = service.GetSession(ctx, started.ID, "op-other", false)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeForbidden, errors.GetCode(err))

	_, err = service.GetSession(ctx, "00000000-0000-0000-0000-000000000000", testOperatorID, false)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestListOperatorSessions(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	first, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)
	_, err = service.EndSession(ctx, EndSessionParams{CallerID: testOperatorID, Summary: "done"})
	require.NoError(t, err)

	params := startParams()
	params.TargetEntityID = testCompanyB
	second, err := service.StartSession(ctx, params)
	require.NoError(t, err)

	// All sessions, newest first
	sessions, total, err := service.ListOperatorSessions(ctx, testOperatorID, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)

	// Status filter
	active, total, err := service.ListOperatorSessions(ctx, testOperatorID, SessionStatusActive, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	ended, total, err := service.ListOperatorSessions(ctx, testOperatorID, SessionStatusEnded, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, ended, 1)
	assert.Equal(t, first.ID, ended[0].ID)

	// Invalid status filter
	_, _, err = service.ListOperatorSessions(ctx, testOperatorID, SessionStatus("paused"), 10, 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestListActiveSessions(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	_, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	params := startParams()
	params.OperatorID = "op-1001"
	params.TargetEntityID = testCompanyB
	_, err = service.StartSession(ctx, params)
	require.NoError(t, err)

	_, err = service.EndSession(ctx, EndSessionParams{CallerID: "op-1001"})
	require.NoError(t, err)

	sessions, total, err := service.ListActiveSessions(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, sessions, 1)
	assert.Equal(t, testOperatorID, sessions[0].OperatorID)
}

func TestSessionNotifications(t *testing.T) {
	notifier := &recordingNotifier{}
	nm := notification.NewNotificationManager("")
	nm.RegisterNotifier(notification.EmailSystem, notifier)
	require.NoError(t, nm.RegisterNotification(notification.SupportSessionStarted, notification.EmailSystem,
		notification.NoticeTemplate{Subject: "Support session started", Text: "{{.OperatorEmail}} acting as {{.TargetEntityName}}"}))
	require.NoError(t, nm.RegisterNotification(notification.SupportSessionEnded, notification.EmailSystem,
		notification.NoticeTemplate{Subject: "Support session ended", Text: "{{.OperatorEmail}} done after {{.DurationSeconds}}s"}))

	service := newTestService(WithNotifications(nm, "security@example.com"))
	ctx := context.Background()

	started, err := service.StartSession(ctx, startParams())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond)
	noticeType, data := notifier.notice(0)
	assert.Equal(t, notification.SupportSessionStarted, noticeType)
	assert.Equal(t, "security@example.com", data.To)
	assert.Equal(t, started.ID, data.Data["SessionId"])
	assert.Equal(t, "TechCorp", data.Data["TargetEntityName"])

	_, err = service.EndSession(ctx, EndSessionParams{CallerID: testOperatorID, Summary: "done"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return notifier.count() == 2 }, time.Second, 10*time.Millisecond)
	noticeType, data = notifier.notice(1)
	assert.Equal(t, notification.SupportSessionEnded, noticeType)
	assert.NotEmpty(t, data.Data["EndedAt"])
	assert.Equal(t, "done", data.Data["Summary"])
}
