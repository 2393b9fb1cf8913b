package audit

import (
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// Key substrings whose values never belong in an audit record, matched
// case-insensitively. "key" intentionally also catches apiKey, sshKey
// and friends.
var sensitiveKeySubstrings = []string{
	"password",
	"token",
	"secret",
	"key",
	"auth",
	"credential",
}

// SanitizeDetails returns a copy of details with every value whose key
// looks sensitive replaced by "[REDACTED]". Matching descends into
// nested maps and slices; values under non-sensitive keys are preserved
// untouched.
func SanitizeDetails(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}

	sanitized := make(map[string]interface{}, len(details))
	for key, value := range details {
		if isSensitiveKey(key) {
			sanitized[key] = redactedPlaceholder
			continue
		}
		sanitized[key] = sanitizeValue(value)
	}
	return sanitized
}

func sanitizeValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		return SanitizeDetails(typed)
	case []interface{}:
		sanitized := make([]interface{}, len(typed))
		for i, item := range typed {
			sanitized[i] = sanitizeValue(item)
		}
		return sanitized
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, substring := range sensitiveKeySubstrings {
		if strings.Contains(lower, substring) {
			return true
		}
	}
	return false
}
