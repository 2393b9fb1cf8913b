package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// The GetEnv* helpers back the config sections that load outside cleanenv,
// such as the rate limit settings. Unset or unparsable variables fall back
// to the given default rather than failing; validation of the assembled
// config is the Validate step's job.

// GetEnv returns the raw value of an environment variable, empty if unset.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvOrDefault returns the variable's value, or defaultValue when unset
// or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := parse(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvInt reads the variable as an int.
func GetEnvInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

// GetEnvInt64 reads the variable as an int64.
func GetEnvInt64(key string, defaultValue int64) int64 {
	return parseEnv(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

// GetEnvFloat64 reads the variable as a float64.
func GetEnvFloat64(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// GetEnvUint16 reads the variable as a uint16, which is the shape of a port.
func GetEnvUint16(key string, defaultValue uint16) uint16 {
	return parseEnv(key, defaultValue, func(s string) (uint16, error) {
		v, err := strconv.ParseUint(s, 10, 16)
		return uint16(v), err
	})
}

// GetEnvDuration reads the variable as a Go duration string ("30s", "1h30m").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration)
}

// GetEnvBool reads the variable as a boolean. It accepts true/1/yes/on and
// false/0/no/off in any case.
func GetEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// GetEnvSlice reads a comma-separated variable into a slice, trimming each
// entry and dropping empty ones.
func GetEnvSlice(key string, defaultValue []string) []string {
	parts := splitAndTrim(os.Getenv(key), ",")
	if len(parts) == 0 {
		return defaultValue
	}
	return parts
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// Environment names a deployment environment, selected through APP_ENV.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
	Test        Environment = "test"
)

// GetEnvironment reads APP_ENV, accepting the common short forms. Anything
// unrecognized counts as development.
func GetEnvironment() Environment {
	switch os.Getenv("APP_ENV") {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "test", "testing":
		return Test
	default:
		return Development
	}
}

// IsDevelopment reports whether APP_ENV selects the development environment.
func IsDevelopment() bool {
	return GetEnvironment() == Development
}

// IsProduction reports whether APP_ENV selects the production environment.
func IsProduction() bool {
	return GetEnvironment() == Production
}
