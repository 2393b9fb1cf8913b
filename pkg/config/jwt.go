package config

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// JWTConfig is the token verification section. The secret must match the
// identity provider issuing the operator tokens.
type JWTConfig struct {
	Secret            string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	AccessTokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"1h"`
	Issuer            string `env:"JWT_ISSUER" env-default:"simple-support"`
	Audience          string `env:"JWT_AUDIENCE" env-default:"simple-support"`
}

// ParseAccessTokenExpiry parses the configured expiry.
func (j JWTConfig) ParseAccessTokenExpiry() (time.Duration, error) {
	return parseDurationISO8601(j.AccessTokenExpiry)
}

// Validate checks the signing secret and expiry format.
func (j JWTConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireNonEmpty("JWT_SECRET", j.Secret),
		WhenSet(j.Secret, func() *ValidationError {
			return RequireMinLength("JWT_SECRET", j.Secret, 16)
		}),
	)
	if _, err := j.ParseAccessTokenExpiry(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "ACCESS_TOKEN_EXPIRY",
			Message: fmt.Sprintf("invalid duration %q", j.AccessTokenExpiry),
		})
	}
	return errs
}

// NewJWTConfigFromEnv loads the section without cleanenv, using the same
// variables and defaults as the struct tags.
func NewJWTConfigFromEnv() JWTConfig {
	return JWTConfig{
		Secret:            GetEnvOrDefault("JWT_SECRET", "very-secure-jwt-secret"),
		AccessTokenExpiry: GetEnvOrDefault("ACCESS_TOKEN_EXPIRY", "1h"),
		Issuer:            GetEnvOrDefault("JWT_ISSUER", "simple-support"),
		Audience:          GetEnvOrDefault("JWT_AUDIENCE", "simple-support"),
	}
}

// parseDurationISO8601 accepts both ISO8601 ("PT1H") and Go ("1h") duration
// strings. Deployment tooling tends to produce the former.
func parseDurationISO8601(s string) (time.Duration, error) {
	if isoDuration, err := duration.Parse(s); err == nil {
		return isoDuration.ToTimeDuration(), nil
	}
	return time.ParseDuration(s)
}
