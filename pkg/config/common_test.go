package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "value")
	t.Setenv("X_INT", "42")
	t.Setenv("X_FLOAT", "2.5")
	t.Setenv("X_PORT", "8443")
	t.Setenv("X_DUR", "90s")
	t.Setenv("X_BAD_INT", "not-a-number")

	assert.Equal(t, "value", GetEnv("X_STR"))
	assert.Equal(t, "", GetEnv("X_UNSET"))

	assert.Equal(t, "value", GetEnvOrDefault("X_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("X_UNSET", "fallback"))

	assert.Equal(t, 42, GetEnvInt("X_INT", 7))
	assert.Equal(t, 7, GetEnvInt("X_BAD_INT", 7))
	assert.Equal(t, int64(42), GetEnvInt64("X_INT", 7))
	assert.Equal(t, 2.5, GetEnvFloat64("X_FLOAT", 1.0))
	assert.Equal(t, uint16(8443), GetEnvUint16("X_PORT", 80))

	assert.Equal(t, 90*time.Second, GetEnvDuration("X_DUR", time.Minute))
	assert.Equal(t, time.Minute, GetEnvDuration("X_UNSET", time.Minute))
}

func TestGetEnvBool(t *testing.T) {
	for raw, want := range map[string]bool{
		"true":  true,
		"1":     true,
		"YES":   true,
		"on":    true,
		"false": false,
		"0":     false,
		"No":    false,
		"off":   false,
	} {
		t.Setenv("X_BOOL", raw)
		// Default is the opposite of the expectation, so a fallback shows up
		assert.Equal(t, want, GetEnvBool("X_BOOL", !want), "value %q", raw)
	}

	t.Setenv("X_BOOL", "maybe")
	assert.True(t, GetEnvBool("X_BOOL", true))
	assert.False(t, GetEnvBool("X_BOOL", false))
}

func TestGetEnvSlice(t *testing.T) {
	t.Setenv("X_LIST", " a, b ,,c ")
	assert.Equal(t, []string{"a", "b", "c"}, GetEnvSlice("X_LIST", nil))

	t.Setenv("X_LIST", " , ")
	assert.Equal(t, []string{"fallback"}, GetEnvSlice("X_LIST", []string{"fallback"}))
}

func TestEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	assert.Equal(t, Production, GetEnvironment())
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())

	t.Setenv("APP_ENV", "whatever")
	assert.Equal(t, Development, GetEnvironment())
	assert.True(t, IsDevelopment())
}

func TestValidationKit(t *testing.T) {
	assert.Nil(t, RequireNonEmpty("F", "x"))
	assert.Equal(t, "F: is required", RequireNonEmpty("F", "").Error())

	assert.Nil(t, RequireValidURL("U", "https://example.com/hook"))
	assert.Contains(t, RequireValidURL("U", "example.com/hook").Error(), "scheme")

	assert.Nil(t, RequireValidEmail("E", "security@example.com"))
	assert.NotNil(t, RequireValidEmail("E", "security@"))

	assert.Nil(t, RequireOneOf("M", "DELETE", []string{"GET", "DELETE"}))
	assert.NotNil(t, RequireOneOf("M", "FETCH", []string{"GET", "DELETE"}))

	assert.Nil(t, RequireMinLength("S", "0123456789abcdef", 16))
	assert.NotNil(t, RequireMinLength("S", "short", 16))

	assert.Nil(t, WhenSet("", func() *ValidationError { return RequireValidEmail("E", "") }))

	errs := CollectErrors(
		RequireNonEmpty("A", ""),
		RequireNonEmpty("B", "ok"),
		RequirePositive("C", 0),
	)
	require.Len(t, errs, 2)
	assert.True(t, errs.HasErrors())
	assert.Contains(t, errs.Error(), "configuration validation failed:")
	assert.Contains(t, errs.Error(), "A: is required")
	assert.Contains(t, errs.Error(), "C: must be positive, got 0")

	assert.False(t, CollectErrors(nil, nil).HasErrors())

	err := Validate(
		func() ValidationErrors { return CollectErrors(RequireNonEmpty("A", "")) },
		func() ValidationErrors { return nil },
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A: is required")

	assert.NoError(t, Validate(func() ValidationErrors { return nil }))
}
