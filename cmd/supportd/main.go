package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-support/pkg/audit"
	auditapi "github.com/tendant/simple-support/pkg/audit/api"
	"github.com/tendant/simple-support/pkg/client"
	"github.com/tendant/simple-support/pkg/company"
	"github.com/tendant/simple-support/pkg/config"
	"github.com/tendant/simple-support/pkg/notice"
	"github.com/tendant/simple-support/pkg/ratelimit"
	"github.com/tendant/simple-support/pkg/roles"
	"github.com/tendant/simple-support/pkg/support"
	supportapi "github.com/tendant/simple-support/pkg/support/api"
)

type Config struct {
	AppConfig app.AppConfig
	Database  config.DatabaseConfig
	Email     config.EmailConfig
	JWT       config.JWTConfig
	Support   config.SupportConfig
}

// loadEnvFile loads environment variables from .env file if it exists
// Only sets variables that are not already set in the environment
func loadEnvFile() {
	// Get the directory where the executable is located
	execPath, err := os.Executable()
	if err != nil {
		slog.Error("Failed to get executable path", "error", err)
		return
	}

	execDir := filepath.Dir(execPath)
	envFile := filepath.Join(execDir, ".env")

	// Also check current working directory
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, err := os.Getwd()
		if err != nil {
			slog.Error("Failed to get current working directory", "error", err)
			return
		}
		envFile = filepath.Join(cwd, ".env")
	}

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Info("No .env file found, using environment variables", "path", envFile)
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)

	// Load .env file using godotenv
	err = godotenv.Load(envFile)
	if err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
		return
	}

	slog.Info("Configuration loaded from .env file successfully")
}

func main() {

	// Load .env file if it exists (before reading environment variables)
	loadEnvFile()

	// JSON logs for the aggregator in production, readable text elsewhere.
	// Development also turns on debug logging.
	level := slog.LevelInfo
	if config.IsDevelopment() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: level}
	var handler slog.Handler
	if config.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	// Rate limit settings have no env tags, load them separately
	rateLimitConfig := config.NewRateLimitConfigFromEnv()

	if err := config.Validate(
		cfg.Database.Validate,
		cfg.Email.Validate,
		cfg.JWT.Validate,
		cfg.Support.Validate,
	); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(-1)
	}

	server := app.DefaultApp()

	app.RegisterHealthzRoutes(server.R)

	// Configure and add rate limiting middleware
	rateLimitMiddleware := ratelimit.NewMiddleware(rateLimitConfig.ToMiddlewareConfig())
	server.R.Use(rateLimitMiddleware.Handler)
	slog.Info("Rate limiting configured",
		"global", rateLimitConfig.GlobalEnabled,
		"per_ip", rateLimitConfig.PerIPEnabled,
		"act_as", rateLimitConfig.ActAsEnabled)

	dbConfig := cfg.Database.ToDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	// Initialize repositories
	companyRepo := company.NewPostgresRepository(pool)
	supportRepo := support.NewPostgresRepository(pool)
	auditRepo := audit.NewPostgresRepository(pool)

	companyService := company.NewService(companyRepo)

	// Permission resolver with deployment policy applied
	resolver := roles.NewResolver(cfg.Support.ResolverOptions()...)

	// Session notifications are optional: without a security mailbox the
	// session service runs silent
	var sessionOpts []support.SessionServiceOption
	if cfg.Support.SecurityMailbox != "" {
		notificationManager, err := notice.NewNotificationManager(
			cfg.Support.BaseURL,
			cfg.Email.ToNoticeConfig(),
			cfg.Support.SlackWebhookURL,
		)
		if err != nil {
			slog.Error("Failed initialize notification manager", "err", err)
		} else {
			sessionOpts = append(sessionOpts, support.WithNotifications(notificationManager, cfg.Support.SecurityMailbox))
			slog.Info("Session notifications configured",
				"mailbox", cfg.Support.SecurityMailbox,
				"slack", cfg.Support.SlackWebhookURL != "")
		}
	} else {
		slog.Info("Session notifications disabled, no security mailbox configured")
	}

	sessionService := support.NewSessionService(supportRepo, companyService, resolver, sessionOpts...)

	// Audit recorder mirrors entries onto the owning session's action trail
	recorder := audit.NewRecorder(auditRepo, supportRepo)
	auditMiddleware, err := audit.NewMiddleware(cfg.Support.ToAuditConfig(recorder))
	if err != nil {
		slog.Error("Failed creating audit middleware", "error", err)
		os.Exit(-1)
	}
	auditService := audit.NewService(auditRepo)

	supportHandler := supportapi.NewHandler(sessionService)
	auditHandler := auditapi.NewHandler(auditService)
	companyHandler := company.NewHandler(companyService)

	auth := jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil)

	server.R.Group(func(r chi.Router) {
		r.Use(client.Verifier(auth))
		r.Use(jwtauth.Authenticator(auth))
		r.Use(client.AuthUserMiddleware)

		// Order matters: the acting middleware rewrites identity, the
		// audit middleware observes every response (including the gate's
		// rejections), and the gate blocks restricted actions last.
		r.Use(support.ActingMiddleware(sessionService))
		r.Use(auditMiddleware.AuditRequestMiddleware)
		r.Use(support.RestrictionGate(cfg.Support.ToRestrictedActions()))

		r.Route("/api/support", func(r chi.Router) {
			supportHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(client.AdminRoleMiddleware)
				supportHandler.RegisterAdminRoutes(r)
			})
		})

		r.Route("/api/companies", companyHandler.RegisterRoutes)

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(client.AdminRoleMiddleware)
			r.Route("/audit-logs", auditHandler.RegisterRoutes)
		})
	})

	slog.Info("Support service ready",
		"support", "/api/support",
		"companies", "/api/companies",
		"audit_logs", "/api/admin/audit-logs")

	server.Run()
}
