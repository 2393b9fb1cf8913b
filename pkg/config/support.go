package config

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tendant/simple-support/pkg/audit"
	"github.com/tendant/simple-support/pkg/roles"
	"github.com/tendant/simple-support/pkg/support"
)

// SupportConfig contains support impersonation policy settings: who may be
// targeted, which operators are benched, which actions stay off-limits while
// acting, and how the audit middleware treats request paths.
//
// The audit prefix and skip lists default to the audit package's built-ins
// when left empty.
type SupportConfig struct {
	// SecurityMailbox receives session start/end notifications. Empty
	// disables email notifications.
	SecurityMailbox string `env:"SUPPORT_SECURITY_MAILBOX"`
	// SlackWebhookURL mirrors notifications to a Slack channel. Optional.
	SlackWebhookURL string `env:"SUPPORT_SLACK_WEBHOOK_URL"`
	// BaseURL is used to build links in notification messages.
	BaseURL string `env:"SUPPORT_BASE_URL" env-default:"http://localhost:4000"`

	// AllowedTargets restricts impersonation to the listed company IDs.
	// Empty means any company may be targeted.
	AllowedTargets []string `env:"SUPPORT_ALLOWED_TARGETS"`
	// RestrictedOperators lists operator IDs barred from starting sessions.
	RestrictedOperators []string `env:"SUPPORT_RESTRICTED_OPERATORS"`
	// RestrictedActions overrides the default deny-list. Entries are
	// "METHOD /path" pairs, e.g. "DELETE /api/companies/{id}"; the method
	// may be "*" and the path may use chi placeholders or a "*" suffix.
	RestrictedActions []string `env:"SUPPORT_RESTRICTED_ACTIONS"`

	// SensitivePrefixes are path prefixes audited even on successful GETs.
	SensitivePrefixes []string `env:"AUDIT_SENSITIVE_PREFIXES"`
	// AdminPrefixes mark matching audit entries as admin actions.
	AdminPrefixes []string `env:"AUDIT_ADMIN_PREFIXES"`
	// SkipPaths are never audited.
	SkipPaths []string `env:"AUDIT_SKIP_PATHS"`
	// MaxBodyBytes caps how much of a request body the audit middleware parses.
	MaxBodyBytes int64 `env:"AUDIT_MAX_BODY_BYTES" env-default:"65536"`
}

// NewSupportConfigFromEnv loads SupportConfig from standard environment variables.
//
// Environment variables:
//   - SUPPORT_SECURITY_MAILBOX: Recipient for session notifications (default: none)
//   - SUPPORT_SLACK_WEBHOOK_URL: Slack webhook for session notifications (default: none)
//   - SUPPORT_BASE_URL: Base URL for links in notifications (default: http://localhost:4000)
//   - SUPPORT_ALLOWED_TARGETS: Comma-separated company IDs eligible as targets (default: all)
//   - SUPPORT_RESTRICTED_OPERATORS: Comma-separated operator IDs barred from sessions
//   - SUPPORT_RESTRICTED_ACTIONS: Comma-separated "METHOD /path" deny-list entries
//   - AUDIT_SENSITIVE_PREFIXES: Comma-separated prefixes audited on successful reads
//   - AUDIT_ADMIN_PREFIXES: Comma-separated prefixes marked as admin actions
//   - AUDIT_SKIP_PATHS: Comma-separated paths excluded from auditing
//   - AUDIT_MAX_BODY_BYTES: Request body parse cap for audit details (default: 65536)
func NewSupportConfigFromEnv() SupportConfig {
	return SupportConfig{
		SecurityMailbox:     GetEnv("SUPPORT_SECURITY_MAILBOX"),
		SlackWebhookURL:     GetEnv("SUPPORT_SLACK_WEBHOOK_URL"),
		BaseURL:             GetEnvOrDefault("SUPPORT_BASE_URL", "http://localhost:4000"),
		AllowedTargets:      GetEnvSlice("SUPPORT_ALLOWED_TARGETS", nil),
		RestrictedOperators: GetEnvSlice("SUPPORT_RESTRICTED_OPERATORS", nil),
		RestrictedActions:   GetEnvSlice("SUPPORT_RESTRICTED_ACTIONS", nil),
		SensitivePrefixes:   GetEnvSlice("AUDIT_SENSITIVE_PREFIXES", nil),
		AdminPrefixes:       GetEnvSlice("AUDIT_ADMIN_PREFIXES", nil),
		SkipPaths:           GetEnvSlice("AUDIT_SKIP_PATHS", nil),
		MaxBodyBytes:        GetEnvInt64("AUDIT_MAX_BODY_BYTES", 64*1024),
	}
}

var restrictionMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	"*",
}

// Validate checks notification endpoints and the deny-list entry format.
func (c SupportConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		WhenSet(c.SecurityMailbox, func() *ValidationError {
			return RequireValidEmail("SUPPORT_SECURITY_MAILBOX", c.SecurityMailbox)
		}),
		WhenSet(c.SlackWebhookURL, func() *ValidationError {
			return RequireValidURL("SUPPORT_SLACK_WEBHOOK_URL", c.SlackWebhookURL)
		}),
		WhenSet(c.BaseURL, func() *ValidationError {
			return RequireValidURL("SUPPORT_BASE_URL", c.BaseURL)
		}),
		RequirePositive("AUDIT_MAX_BODY_BYTES", int(c.MaxBodyBytes)),
	)

	for i, entry := range c.RestrictedActions {
		field := fmt.Sprintf("SUPPORT_RESTRICTED_ACTIONS[%d]", i)
		method, path, ok := splitRestrictedAction(entry)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf(`must be "METHOD /path", got %q`, entry),
			})
			continue
		}
		if err := RequireOneOf(field, method, restrictionMethods); err != nil {
			errs = append(errs, *err)
		}
		if !strings.HasPrefix(path, "/") {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("path must start with /, got %q", path),
			})
		}
	}

	return errs
}

// ToRestrictedActions converts the configured deny-list entries to the
// restriction gate's form. Returns nil when nothing is configured so the
// gate falls back to its default deny-list.
func (c SupportConfig) ToRestrictedActions() []support.RestrictedAction {
	if len(c.RestrictedActions) == 0 {
		return nil
	}

	actions := make([]support.RestrictedAction, 0, len(c.RestrictedActions))
	for _, entry := range c.RestrictedActions {
		method, path, ok := splitRestrictedAction(entry)
		if !ok {
			continue
		}
		actions = append(actions, support.RestrictedAction{
			Method:      method,
			PathPattern: path,
		})
	}
	return actions
}

// ResolverOptions converts the target and operator policy lists to options
// for the permission resolver.
func (c SupportConfig) ResolverOptions() []roles.ResolverOption {
	var opts []roles.ResolverOption
	if len(c.AllowedTargets) > 0 {
		opts = append(opts, roles.WithAllowedTargets(c.AllowedTargets))
	}
	if len(c.RestrictedOperators) > 0 {
		opts = append(opts, roles.WithRestrictedOperators(c.RestrictedOperators))
	}
	return opts
}

// ToAuditConfig converts SupportConfig to the audit middleware's Config.
func (c SupportConfig) ToAuditConfig(recorder *audit.Recorder) audit.Config {
	return audit.Config{
		Recorder:          recorder,
		SensitivePrefixes: c.SensitivePrefixes,
		AdminPrefixes:     c.AdminPrefixes,
		SkipPaths:         c.SkipPaths,
		MaxBodyBytes:      c.MaxBodyBytes,
	}
}

func splitRestrictedAction(entry string) (method, path string, ok bool) {
	parts := strings.Fields(strings.TrimSpace(entry))
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.ToUpper(parts[0]), parts[1], true
}
