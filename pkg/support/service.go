package support

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-support/pkg/company"
	"github.com/tendant/simple-support/pkg/errors"
	"github.com/tendant/simple-support/pkg/notice"
	"github.com/tendant/simple-support/pkg/notification"
	"github.com/tendant/simple-support/pkg/roles"
)

// SessionService owns the support session lifecycle: starting, ending,
// switching targets, and reading sessions back. All writes that enforce
// the one-active-session rule are delegated to the repository, which
// performs them as single conditional writes.
type SessionService struct {
	repo                Repository
	directory           *company.Service
	resolver            *roles.Resolver
	notificationManager *notification.NotificationManager
	securityMailbox     string
}

// SessionServiceOption defines configuration options
type SessionServiceOption func(*SessionService)

// WithNotifications enables security-mailbox notices on session start and end
func WithNotifications(notificationManager *notification.NotificationManager, securityMailbox string) SessionServiceOption {
	return func(s *SessionService) {
		s.notificationManager = notificationManager
		s.securityMailbox = securityMailbox
	}
}

// NewSessionService creates a new support session service
func NewSessionService(repo Repository, directory *company.Service, resolver *roles.Resolver, opts ...SessionServiceOption) *SessionService {
	service := &SessionService{
		repo:      repo,
		directory: directory,
		resolver:  resolver,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// StartSession opens a new support session for the operator against the
// target company. The repository rejects the write when the operator
// already has an active session, so concurrent starts never yield two.
func (s *SessionService) StartSession(ctx context.Context, params StartSessionParams) (*SupportSession, error) {
	session, err := s.startSession(ctx, params, "")
	if err != nil {
		return nil, err
	}

	s.notify(notice.SupportSessionStarted, session)
	return session, nil
}

func (s *SessionService) startSession(ctx context.Context, params StartSessionParams, switchedFrom string) (*SupportSession, error) {
	if params.OperatorID == "" {
		return nil, errors.Unauthorized("operator identity is required")
	}
	if strings.TrimSpace(params.TargetEntityID) == "" {
		return nil, errors.MissingRequired("targetEntityId")
	}
	if strings.TrimSpace(params.Reason) == "" {
		return nil, errors.MissingRequired("reason")
	}
	if params.EstimatedDurationMinutes < 0 {
		return nil, errors.InvalidInput("estimatedDurationMinutes", "must not be negative")
	}

	role, err := roles.ParseRole(params.OperatorRole)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.CheckActAs(role, params.OperatorID, params.TargetEntityID); err != nil {
		return nil, err
	}

	target, err := s.directory.GetCompany(ctx, strings.TrimSpace(params.TargetEntityID))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return nil, errors.TargetNotFound(params.TargetEntityID)
		}
		return nil, errors.InternalWrap(err, "failed to resolve target company")
	}

	session := SupportSession{
		ID:                       uuid.New().String(),
		OperatorID:               params.OperatorID,
		OperatorEmail:            params.OperatorEmail,
		TargetEntityID:           target.ID,
		TargetEntityName:         target.Name,
		StartedAt:                time.Now().UTC(),
		Reason:                   strings.TrimSpace(params.Reason),
		EstimatedDurationMinutes: params.EstimatedDurationMinutes,
		Status:                   SessionStatusActive,
		Metadata: SessionMetadata{
			OperatorRole: role.String(),
		},
	}

	created, err := s.repo.Create(ctx, session)
	if err != nil {
		if stderrors.Is(err, ErrActiveSessionExists) {
			return nil, errors.ActiveSessionExists(params.OperatorID)
		}
		return nil, errors.InternalWrap(err, "failed to create support session")
	}

	s.recordStartMarker(ctx, created, switchedFrom)
	return created, nil
}

// recordStartMarker appends the SESSION_STARTED trail entry. The append is
// best effort: the session is already durable, so a marker failure is
// logged and swallowed rather than failing the start.
func (s *SessionService) recordStartMarker(ctx context.Context, session *SupportSession, switchedFrom string) {
	details := map[string]interface{}{
		"reason":           session.Reason,
		"targetEntityName": session.TargetEntityName,
	}
	if session.EstimatedDurationMinutes > 0 {
		details["estimatedDurationMinutes"] = session.EstimatedDurationMinutes
	}

	path := "/api/support/act-as"
	if switchedFrom != "" {
		details["switchedFromSessionId"] = switchedFrom
		path = "/api/support/switch-target"
	}

	action := SessionAction{
		Timestamp:  session.StartedAt,
		Action:     ActionSessionStarted,
		Resource:   "support-session",
		ResourceID: session.ID,
		Method:     http.MethodPost,
		Path:       path,
		Details:    details,
	}

	if err := s.repo.AppendAction(ctx, session.ID, action); err != nil {
		slog.Warn("Failed to record session start marker", "sessionId", session.ID, "err", err)
		return
	}
	session.Actions = append(session.Actions, action)
}

// EndSession ends a support session. When params.SessionID is empty the
// caller's own active session is ended; otherwise the named session is
// ended, which only its owner or an admin may do.
func (s *SessionService) EndSession(ctx context.Context, params EndSessionParams) (*SupportSession, error) {
	if params.CallerID == "" {
		return nil, errors.Unauthorized("caller identity is required")
	}

	sessionID := params.SessionID
	if sessionID == "" {
		active, err := s.repo.GetActiveByOperatorID(ctx, params.CallerID)
		if err != nil {
			if stderrors.Is(err, ErrSessionNotFound) {
				return nil, errors.NoActiveSession(params.CallerID)
			}
			return nil, errors.InternalWrap(err, "failed to look up active session")
		}
		sessionID = active.ID
	} else {
		session, err := s.repo.GetByID(ctx, sessionID)
		if err != nil {
			if stderrors.Is(err, ErrSessionNotFound) {
				return nil, errors.NotFound("support session", sessionID)
			}
			return nil, errors.InternalWrap(err, "failed to load session")
		}
		if session.OperatorID != params.CallerID && !params.CallerIsAdmin {
			return nil, errors.Forbidden("only the session owner or an administrator can end this session")
		}
		if !session.Active() {
			return nil, errors.SessionEnded(sessionID)
		}
	}

	ended, err := s.endSession(ctx, sessionID, params.Summary, "")
	if err != nil {
		return nil, err
	}

	s.notify(notice.SupportSessionEnded, ended)
	return ended, nil
}

// endSession performs the single guarded end write and maps the
// lost-the-race case to a session-ended conflict.
func (s *SessionService) endSession(ctx context.Context, sessionID, summary, endNote string) (*SupportSession, error) {
	ended, err := s.repo.End(ctx, EndSessionRecord{
		SessionID: sessionID,
		Summary:   strings.TrimSpace(summary),
		EndNote:   endNote,
	})
	if err != nil {
		if stderrors.Is(err, ErrSessionNotFound) {
			return nil, errors.SessionEnded(sessionID)
		}
		return nil, errors.InternalWrap(err, "failed to end support session")
	}
	return ended, nil
}

// SwitchTarget ends the operator's active session with a system note and
// starts a new one against the new target. Each step is atomic on its own
// but the pair is not: when the end succeeds and the start fails the
// operator is left with no active session and receives SWITCH_INCOMPLETE.
// The service never retries the start on its own; the operator re-issues
// act-as explicitly.
func (s *SessionService) SwitchTarget(ctx context.Context, params SwitchTargetParams) (*SupportSession, error) {
	if params.OperatorID == "" {
		return nil, errors.Unauthorized("operator identity is required")
	}
	if strings.TrimSpace(params.NewTargetID) == "" {
		return nil, errors.MissingRequired("targetEntityId")
	}

	current, err := s.repo.GetActiveByOperatorID(ctx, params.OperatorID)
	if err != nil {
		if stderrors.Is(err, ErrSessionNotFound) {
			return nil, errors.NoActiveSession(params.OperatorID)
		}
		return nil, errors.InternalWrap(err, "failed to look up active session")
	}

	ended, err := s.endSession(ctx, current.ID, "", fmt.Sprintf("switched to target %s", params.NewTargetID))
	if err != nil {
		return nil, err
	}
	s.notify(notice.SupportSessionEnded, ended)

	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		reason = current.Reason
	}

	started, err := s.startSession(ctx, StartSessionParams{
		OperatorID:     params.OperatorID,
		OperatorEmail:  params.OperatorEmail,
		OperatorRole:   params.OperatorRole,
		TargetEntityID: params.NewTargetID,
		Reason:         reason,
	}, ended.ID)
	if err != nil {
		slog.Error("Target switch ended the previous session but could not start a new one",
			"operatorId", params.OperatorID, "endedSessionId", ended.ID, "newTargetId", params.NewTargetID, "err", err)
		return nil, errors.SwitchIncomplete(err, ended.ID)
	}

	s.notify(notice.SupportSessionStarted, started)
	return started, nil
}

// EmergencyExit immediately ends the operator's active session without a
// summary. It exists so a stuck operator always has a one-click way out.
func (s *SessionService) EmergencyExit(ctx context.Context, operatorID string) (*SupportSession, error) {
	if operatorID == "" {
		return nil, errors.Unauthorized("operator identity is required")
	}

	active, err := s.repo.GetActiveByOperatorID(ctx, operatorID)
	if err != nil {
		if stderrors.Is(err, ErrSessionNotFound) {
			return nil, errors.NoActiveSession(operatorID)
		}
		return nil, errors.InternalWrap(err, "failed to look up active session")
	}

	ended, err := s.endSession(ctx, active.ID, "", "emergency exit")
	if err != nil {
		return nil, err
	}

	s.notify(notice.SupportSessionEnded, ended)
	return ended, nil
}

// CurrentSession returns the operator's active session without its trail,
// or (nil, nil) when the operator is not acting as anyone.
func (s *SessionService) CurrentSession(ctx context.Context, operatorID string) (*SupportSession, error) {
	if operatorID == "" {
		return nil, errors.Unauthorized("operator identity is required")
	}

	session, err := s.repo.GetActiveByOperatorID(ctx, operatorID)
	if err != nil {
		if stderrors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, errors.InternalWrap(err, "failed to look up active session")
	}
	return session, nil
}

// GetSession returns one session including its full trail. Only the owner
// or an admin may read it.
func (s *SessionService) GetSession(ctx context.Context, sessionID, callerID string, callerIsAdmin bool) (*SupportSession, error) {
	if sessionID == "" {
		return nil, errors.MissingRequired("sessionId")
	}

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, ErrSessionNotFound) {
			return nil, errors.NotFound("support session", sessionID)
		}
		return nil, errors.InternalWrap(err, "failed to load session")
	}
	if session.OperatorID != callerID && !callerIsAdmin {
		return nil, errors.Forbidden("only the session owner or an administrator can view this session")
	}
	return session, nil
}

// ListOperatorSessions returns the operator's own sessions, newest first,
// optionally filtered by status. Trails are not included.
func (s *SessionService) ListOperatorSessions(ctx context.Context, operatorID string, status SessionStatus, limit, offset int) ([]SupportSession, int, error) {
	if operatorID == "" {
		return nil, 0, errors.Unauthorized("operator identity is required")
	}
	if status != "" && status != SessionStatusActive && status != SessionStatusEnded {
		return nil, 0, errors.InvalidInput("status", "must be active or ended")
	}

	params := ListSessionsParams{
		OperatorID: operatorID,
		Status:     status,
		Limit:      limit,
		Offset:     offset,
	}
	return s.list(ctx, params)
}

// ListActiveSessions returns every operator's active session for the
// admin oversight view. Trails are not included.
func (s *SessionService) ListActiveSessions(ctx context.Context, limit, offset int) ([]SupportSession, int, error) {
	params := ListSessionsParams{
		Status: SessionStatusActive,
		Limit:  limit,
		Offset: offset,
	}
	return s.list(ctx, params)
}

func (s *SessionService) list(ctx context.Context, params ListSessionsParams) ([]SupportSession, int, error) {
	sessions, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, errors.InternalWrap(err, "failed to list sessions")
	}
	total, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, errors.InternalWrap(err, "failed to count sessions")
	}
	return sessions, total, nil
}

// notify sends a session lifecycle notice to the security mailbox. The
// send runs in its own goroutine so notification trouble never delays or
// fails the session operation itself.
func (s *SessionService) notify(noticeType notification.NoticeType, session *SupportSession) {
	if s.notificationManager == nil || s.securityMailbox == "" {
		return
	}

	data := notification.NotificationData{
		To: s.securityMailbox,
		Data: map[string]string{
			"SessionId":        session.ID,
			"OperatorEmail":    session.OperatorEmail,
			"TargetEntityId":   session.TargetEntityID,
			"TargetEntityName": session.TargetEntityName,
			"Reason":           session.Reason,
			"StartedAt":        session.StartedAt.Format(time.RFC3339),
		},
	}
	if session.EndedAt != nil {
		data.Data["EndedAt"] = session.EndedAt.Format(time.RFC3339)
		data.Data["DurationSeconds"] = strconv.FormatInt(session.Metadata.DurationSeconds, 10)
	}
	if session.Metadata.Summary != "" {
		data.Data["Summary"] = session.Metadata.Summary
	}

	go func() {
		if err := s.notificationManager.Send(noticeType, data); err != nil {
			slog.Error("Failed to send support session notice", "noticeType", noticeType, "sessionId", session.ID, "err", err)
		}
	}()
}
