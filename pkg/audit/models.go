package audit

import (
	"time"
)

// SupportContext marks an entry that was produced while a support
// operator was acting as a customer. UserID on the entry is always the
// operator; the customer the work was done against lives here.
type SupportContext struct {
	IsSupportAction  bool   `json:"isSupportAction"`
	SupportSessionID string `json:"supportSessionId,omitempty"`
	OperatorID       string `json:"operatorId,omitempty"`
	TargetEntityID   string `json:"targetEntityId,omitempty"`
}

// AdminContext marks an entry produced on the admin surface. Reason is
// taken from the X-Admin-Reason request header when the caller supplied
// one.
type AdminContext struct {
	IsAdminAction bool   `json:"isAdminAction"`
	Reason        string `json:"reason,omitempty"`
}

// AuditLogEntry is one immutable audit record. JSON field names follow
// the platform's camelCase API convention.
type AuditLogEntry struct {
	ID             string                 `json:"id"`
	Timestamp      time.Time              `json:"timestamp"`
	UserID         string                 `json:"userId"`
	UserRole       string                 `json:"userRole,omitempty"`
	Action         string                 `json:"action"`
	Resource       string                 `json:"resource"`
	ResourceID     string                 `json:"resourceId,omitempty"`
	Method         string                 `json:"method"`
	Path           string                 `json:"path"`
	ClientIP       string                 `json:"clientIp,omitempty"`
	UserAgent      string                 `json:"userAgent,omitempty"`
	StatusCode     int                    `json:"statusCode"`
	DurationMs     int64                  `json:"durationMs"`
	Details        map[string]interface{} `json:"details,omitempty"`
	SupportContext SupportContext         `json:"supportContext"`
	AdminContext   AdminContext           `json:"adminContext"`
}

// ListAuditLogsParams contains filters for the admin audit query surface.
// Zero values mean no filter.
type ListAuditLogsParams struct {
	UserID           string
	Resource         string
	Action           string
	SupportSessionID string
	From             time.Time
	To               time.Time
	Limit            int
	Offset           int
}
