package config

import (
	"time"

	"github.com/tendant/simple-support/pkg/ratelimit"
)

// RateLimitConfig contains rate limiting settings.
// Fields have no env tags - populate manually or use NewRateLimitConfigFromEnv() for standard env var names.
type RateLimitConfig struct {
	// Global rate limiting
	GlobalEnabled    bool
	GlobalCapacity   int
	GlobalRefillRate float64 // tokens per second

	// Per-IP rate limiting
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64 // tokens per second

	// Per-User rate limiting (for authenticated requests)
	PerUserEnabled    bool
	PerUserCapacity   int
	PerUserRefillRate float64 // tokens per second

	// Act-as endpoint specific limits (to brake impersonation hammering).
	// Applies to switch-target as well since switching starts a new session.
	ActAsEnabled    bool
	ActAsCapacity   int
	ActAsRefillRate float64 // tokens per second

	// IncludeHeaders controls whether rate limit headers are included in responses
	IncludeHeaders bool
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		// Global: ~1000 requests per minute
		GlobalEnabled:    true,
		GlobalCapacity:   1000,
		GlobalRefillRate: 16.67,

		// Per-IP: ~100 requests per minute
		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: 1.67,

		// Per-User: ~200 requests per minute
		PerUserEnabled:    true,
		PerUserCapacity:   200,
		PerUserRefillRate: 3.33,

		// Act-as: 10 per hour per operator IP
		ActAsEnabled:    true,
		ActAsCapacity:   10,
		ActAsRefillRate: 0.00278,

		IncludeHeaders: true,
	}
}

// NewRateLimitConfigFromEnv loads RateLimitConfig from standard environment variables.
// This is an optional convenience function - you can also populate the struct manually.
//
// Environment variables:
//   - RATELIMIT_GLOBAL_ENABLED: Enable global rate limiting (default: true)
//   - RATELIMIT_GLOBAL_CAPACITY: Global bucket capacity (default: 1000)
//   - RATELIMIT_GLOBAL_REFILL_RATE: Global refill rate in tokens/sec (default: 16.67)
//   - RATELIMIT_PER_IP_ENABLED: Enable per-IP rate limiting (default: true)
//   - RATELIMIT_PER_IP_CAPACITY: Per-IP bucket capacity (default: 100)
//   - RATELIMIT_PER_IP_REFILL_RATE: Per-IP refill rate in tokens/sec (default: 1.67)
//   - RATELIMIT_PER_USER_ENABLED: Enable per-user rate limiting (default: true)
//   - RATELIMIT_PER_USER_CAPACITY: Per-user bucket capacity (default: 200)
//   - RATELIMIT_PER_USER_REFILL_RATE: Per-user refill rate in tokens/sec (default: 3.33)
//   - RATELIMIT_ACT_AS_ENABLED: Enable act-as endpoint rate limiting (default: true)
//   - RATELIMIT_ACT_AS_CAPACITY: Act-as bucket capacity (default: 10)
//   - RATELIMIT_ACT_AS_REFILL_RATE: Act-as refill rate in tokens/sec (default: 0.00278)
//   - RATELIMIT_INCLUDE_HEADERS: Include rate limit headers in responses (default: true)
func NewRateLimitConfigFromEnv() RateLimitConfig {
	return RateLimitConfig{
		GlobalEnabled:     GetEnvBool("RATELIMIT_GLOBAL_ENABLED", true),
		GlobalCapacity:    GetEnvInt("RATELIMIT_GLOBAL_CAPACITY", 1000),
		GlobalRefillRate:  GetEnvFloat64("RATELIMIT_GLOBAL_REFILL_RATE", 16.67),
		PerIPEnabled:      GetEnvBool("RATELIMIT_PER_IP_ENABLED", true),
		PerIPCapacity:     GetEnvInt("RATELIMIT_PER_IP_CAPACITY", 100),
		PerIPRefillRate:   GetEnvFloat64("RATELIMIT_PER_IP_REFILL_RATE", 1.67),
		PerUserEnabled:    GetEnvBool("RATELIMIT_PER_USER_ENABLED", true),
		PerUserCapacity:   GetEnvInt("RATELIMIT_PER_USER_CAPACITY", 200),
		PerUserRefillRate: GetEnvFloat64("RATELIMIT_PER_USER_REFILL_RATE", 3.33),
		ActAsEnabled:      GetEnvBool("RATELIMIT_ACT_AS_ENABLED", true),
		ActAsCapacity:     GetEnvInt("RATELIMIT_ACT_AS_CAPACITY", 10),
		ActAsRefillRate:   GetEnvFloat64("RATELIMIT_ACT_AS_REFILL_RATE", 0.00278),
		IncludeHeaders:    GetEnvBool("RATELIMIT_INCLUDE_HEADERS", true),
	}
}

// ToMiddlewareConfig converts RateLimitConfig to the ratelimit middleware's
// Config, binding the act-as limit to the session-starting endpoints.
func (c RateLimitConfig) ToMiddlewareConfig() *ratelimit.Config {
	mc := &ratelimit.Config{
		GlobalEnabled:     c.GlobalEnabled,
		GlobalCapacity:    c.GlobalCapacity,
		GlobalRefillRate:  c.GlobalRefillRate,
		PerIPEnabled:      c.PerIPEnabled,
		PerIPCapacity:     c.PerIPCapacity,
		PerIPRefillRate:   c.PerIPRefillRate,
		PerUserEnabled:    c.PerUserEnabled,
		PerUserCapacity:   c.PerUserCapacity,
		PerUserRefillRate: c.PerUserRefillRate,
		EndpointLimits:    make(map[string]ratelimit.EndpointLimit),
		BucketTTL:         1 * time.Hour,
		IncludeHeaders:    c.IncludeHeaders,
	}

	if c.ActAsEnabled {
		limit := ratelimit.EndpointLimit{
			Capacity:   c.ActAsCapacity,
			RefillRate: c.ActAsRefillRate,
		}
		mc.EndpointLimits["POST /api/support/act-as"] = limit
		mc.EndpointLimits["POST /api/support/switch-target"] = limit
	}

	return mc
}
