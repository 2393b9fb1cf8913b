// Package config provides common configuration utilities for simple-support.
//
// This package centralizes configuration loading, validation, and conversion
// so every binary wires the same sections the same way: database, email, JWT,
// rate limiting, and the support impersonation policy.
//
// # Overview
//
// The config package provides:
//   - Environment variable helpers with type conversion
//   - Section configs (DatabaseConfig, EmailConfig, JWTConfig,
//     RateLimitConfig, SupportConfig) with env tags and FromEnv constructors
//   - Converters from section configs to the packages that consume them
//   - Configuration validation utilities
//
// # Environment Variable Helpers
//
// Load configuration from environment variables with automatic type conversion and defaults:
//
//	// String values
//	host := config.GetEnvOrDefault("SUPPORT_PG_HOST", "localhost")
//
//	// Integer values
//	port := config.GetEnvUint16("SUPPORT_PG_PORT", 5432)
//	capacity := config.GetEnvInt("RATELIMIT_ACT_AS_CAPACITY", 10)
//
//	// Boolean values
//	tls := config.GetEnvBool("EMAIL_TLS", false)
//
//	// Duration values
//	timeout := config.GetEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
//
//	// Slice values (comma-separated)
//	targets := config.GetEnvSlice("SUPPORT_ALLOWED_TARGETS", nil)
//
// # Section Configs
//
// Each section can be loaded through cleanenv (the structs carry env tags) or
// through its FromEnv constructor:
//
//	dbConfig := config.NewDatabaseConfigFromEnv()
//	pool, err := dbutils.NewDbPool(ctx, dbConfig.ToDbConfig())
//
//	emailConfig := config.NewEmailConfigFromEnv()
//	notifier, err := notification.NewEmailNotifier(emailConfig.ToSMTPConfig())
//
//	rlConfig := config.NewRateLimitConfigFromEnv()
//	limiter := ratelimit.NewMiddleware(rlConfig.ToMiddlewareConfig())
//
//	supportConfig := config.NewSupportConfigFromEnv()
//	resolver := roles.NewResolver(supportConfig.ResolverOptions()...)
//	gate := support.RestrictionGate(supportConfig.ToRestrictedActions())
//
// # Configuration Validation
//
// Each section config has a Validate method returning ValidationErrors, and
// Validate combines them:
//
//	if err := config.Validate(
//		cfg.Database.Validate,
//		cfg.Email.Validate,
//		cfg.JWT.Validate,
//		cfg.Support.Validate,
//	); err != nil {
//		slog.Error("Invalid configuration", "err", err)
//		os.Exit(1)
//	}
//
// Custom validators compose from the Require helpers:
//
//	func (c *Config) Validate() config.ValidationErrors {
//		return config.CollectErrors(
//			config.RequireNonEmpty("host", c.Host),
//			config.RequireValidPort("port", c.Port),
//			config.WhenSet(c.WebhookURL, func() *config.ValidationError {
//				return config.RequireValidURL("webhook_url", c.WebhookURL)
//			}),
//		)
//	}
//
// # Environment Detection
//
// Detect and respond to different deployment environments:
//
//	if config.IsProduction() {
//		// Use production settings
//	}
//
//	if config.IsDevelopment() {
//		// Relaxed settings, verbose logging
//	}
//
// # Best Practices
//
// 1. Centralize configuration loading
//   - Create a single Config struct per binary composed of section configs
//   - Load all configuration in one place, validate before using it
//
// 2. Document configuration requirements
//   - List all environment variables your binary uses
//   - Specify which are required vs optional, defaults and formats
//
// 3. Never log sensitive configuration values (passwords, secrets, keys)
package config
