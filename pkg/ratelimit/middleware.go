package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-support/pkg/client"
	"github.com/tendant/simple-support/pkg/errors"
)

// Config holds rate limiting settings for the HTTP surface.
type Config struct {
	// Global caps total request throughput across all callers.
	GlobalEnabled    bool
	GlobalCapacity   int
	GlobalRefillRate float64 // tokens per second

	// PerIP protects against a single unauthenticated caller.
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64

	// PerUser applies to authenticated callers, keyed by user id.
	PerUserEnabled    bool
	PerUserCapacity   int
	PerUserRefillRate float64

	// EndpointLimits applies tighter budgets to specific "METHOD /path"
	// endpoints, keyed per caller IP. Session-starting endpoints belong
	// here.
	EndpointLimits map[string]EndpointLimit

	// BucketTTL bounds how long idle buckets stay in memory.
	BucketTTL time.Duration

	// IncludeHeaders adds X-RateLimit-* headers to allowed responses.
	IncludeHeaders bool
}

// EndpointLimit is the budget for one endpoint.
type EndpointLimit struct {
	Capacity   int
	RefillRate float64
}

// DefaultConfig returns limits suitable for a small deployment. No
// endpoint budgets are included; bind those to your own routes, e.g.
//
//	EndpointLimits: map[string]EndpointLimit{
//		"POST /api/support/act-as": {Capacity: 10, RefillRate: 10.0 / 3600.0},
//	}
func DefaultConfig() *Config {
	return &Config{
		// ~1000 requests per minute across everyone
		GlobalEnabled:    true,
		GlobalCapacity:   1000,
		GlobalRefillRate: 1000.0 / 60.0,

		// ~100 requests per minute per address
		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: 100.0 / 60.0,

		// ~200 requests per minute per authenticated user
		PerUserEnabled:    true,
		PerUserCapacity:   200,
		PerUserRefillRate: 200.0 / 60.0,

		EndpointLimits: make(map[string]EndpointLimit),
		BucketTTL:      1 * time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware enforces the configured limits in front of the router.
type Middleware struct {
	config      *Config
	global      *RateLimiter
	perIP       *RateLimiter
	perUser     *RateLimiter
	perEndpoint map[string]*RateLimiter
}

// NewMiddleware creates rate limiting middleware. A nil config uses
// DefaultConfig.
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{
		config:      config,
		perEndpoint: make(map[string]*RateLimiter),
	}

	if config.GlobalEnabled {
		m.global = NewRateLimiter(config.GlobalCapacity, config.GlobalRefillRate, config.BucketTTL)
	}
	if config.PerIPEnabled {
		m.perIP = NewRateLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL)
	}
	if config.PerUserEnabled {
		m.perUser = NewRateLimiter(config.PerUserCapacity, config.PerUserRefillRate, config.BucketTTL)
	}
	for endpoint, limit := range config.EndpointLimits {
		m.perEndpoint[endpoint] = NewRateLimiter(limit.Capacity, limit.RefillRate, config.BucketTTL)
	}

	return m
}

// Handler returns the rate limiting middleware handler.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := callerIP(r)
		user := callerID(r)

		if limitType, ok := m.admit(r, ip, user); !ok {
			m.reject(w, r, limitType, ip, user)
			return
		}

		if m.config.IncludeHeaders {
			m.writeLimitHeaders(w, ip, user)
		}

		next.ServeHTTP(w, r)
	})
}

// admit runs the configured checks from broadest to most specific:
// global, per-IP, per-user, then the endpoint budget.
func (m *Middleware) admit(r *http.Request, ip, user string) (string, bool) {
	if m.global != nil && !m.global.Allow("global") {
		return "global", false
	}
	if m.perIP != nil && ip != "" && !m.perIP.Allow(ip) {
		return "ip", false
	}
	if m.perUser != nil && user != "" && !m.perUser.Allow(user) {
		return "user", false
	}

	endpoint := r.Method + " " + r.URL.Path
	if limiter, ok := m.perEndpoint[endpoint]; ok && !limiter.Allow(ip+":"+endpoint) {
		return "endpoint", false
	}

	return "", true
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, limitType, ip, user string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", ip,
		"user", user,
		"method", r.Method,
		"path", r.URL.Path,
	)

	limitErr := errors.RateLimitExceeded("60").WithDetail("type", limitType)
	w.Header().Set("Retry-After", "60")
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, map[string]interface{}{
		"code":    limitErr.Code,
		"message": limitErr.Message,
		"details": limitErr.Details,
	})
}

func (m *Middleware) writeLimitHeaders(w http.ResponseWriter, ip, user string) {
	if m.perIP != nil && ip != "" {
		w.Header().Set("X-RateLimit-Limit-IP", strconv.Itoa(m.config.PerIPCapacity))
	}
	if m.perUser != nil && user != "" {
		w.Header().Set("X-RateLimit-Limit-User", strconv.Itoa(m.config.PerUserCapacity))
	}
}

// callerIP extracts the client address, trusting proxy headers first.
func callerIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// callerID identifies the authenticated caller. The decoded auth user
// is preferred; when only the token verifier ran, the subject claim
// still identifies the caller.
func callerID(r *http.Request) string {
	if auth := client.GetAuthContext(r); auth.IsAuthenticated {
		return auth.User.UserId
	}

	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return ""
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}

// GetStats reports every limiter keyed the way it is enforced.
func (m *Middleware) GetStats() map[string]Stats {
	stats := make(map[string]Stats)

	if m.global != nil {
		stats["global"] = m.global.GetStats()
	}
	if m.perIP != nil {
		stats["ip"] = m.perIP.GetStats()
	}
	if m.perUser != nil {
		stats["user"] = m.perUser.GetStats()
	}
	for endpoint, limiter := range m.perEndpoint {
		stats["endpoint:"+endpoint] = limiter.GetStats()
	}

	return stats
}

// Reset clears the per-IP and per-user budgets for key.
func (m *Middleware) Reset(key string) {
	if m.perIP != nil {
		m.perIP.Reset(key)
	}
	if m.perUser != nil {
		m.perUser.Reset(key)
	}
}
