// Package main demonstrates running the support service without a database
// using in-memory repositories.
// This is useful for:
// - Quick development and testing
// - Demo/prototype environments
// - Integration testing
// - Learning the API without database setup
//
// Note: All data is lost when the server stops. For production, use cmd/supportd with PostgreSQL.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-support/pkg/audit"
	auditapi "github.com/tendant/simple-support/pkg/audit/api"
	"github.com/tendant/simple-support/pkg/client"
	"github.com/tendant/simple-support/pkg/company"
	"github.com/tendant/simple-support/pkg/errors"
	"github.com/tendant/simple-support/pkg/roles"
	"github.com/tendant/simple-support/pkg/support"
	supportapi "github.com/tendant/simple-support/pkg/support/api"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtSecret    = "inmem-dev-secret-change-in-production"
	baseURL      = "http://localhost:4000"
	demoPassword = "password123"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting In-Memory Support Service (no database required)")
	slog.Info(strings.Repeat("=", 60))

	// Initialize all in-memory repositories
	companyRepo := company.NewInMemoryRepository()
	supportRepo := support.NewInMemoryRepository()
	auditRepo := audit.NewInMemoryRepository()

	// Seed initial data
	companies, users := seedInitialData(companyRepo)

	// Create services
	services := createServices(companyRepo, supportRepo, auditRepo, users)

	// Setup HTTP server
	server := app.NewApp(app.WithPort(4000))

	// Setup routes
	setupRoutes(server.R, services)

	slog.Info(strings.Repeat("=", 60))
	slog.Info("In-Memory Support Service Ready")
	slog.Info("Base URL: " + baseURL)
	slog.Info("")
	slog.Info("Demo users (password for all: " + demoPassword + "):")
	slog.Info("  support@talenthub.example   - support operator")
	slog.Info("  admin@talenthub.example     - platform admin")
	slog.Info("  recruiter@acme.example      - customer user (cannot act as a company)")
	slog.Info("")
	slog.Info("Demo companies:")
	for _, c := range companies {
		slog.Info("  " + c.Name + ": " + c.ID)
	}
	slog.Info("")
	slog.Info("API Endpoints:")
	slog.Info("  POST /auth/token                  - Issue a dev token {email, password}")
	slog.Info("  POST /api/support/act-as          - Start acting as a company")
	slog.Info("  GET  /api/support/current-session - Inspect the acting session")
	slog.Info("  POST /api/support/switch-target   - Move to another company")
	slog.Info("  POST /api/support/end-session     - Stop acting")
	slog.Info("  GET  /api/support/active-sessions - All active sessions (admin only)")
	slog.Info("  GET  /api/admin/audit-logs        - Audit log (admin only)")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

// demoUser is a seeded principal the dev token endpoint can mint tokens for.
type demoUser struct {
	id           string
	email        string
	displayName  string
	role         string
	companyID    string
	passwordHash []byte
}

type Services struct {
	companyService *company.Service
	sessionService *support.SessionService
	auditService   *audit.Service
	auditMw        *audit.Middleware
	jwtAuth        *jwtauth.JWTAuth
	users          map[string]demoUser
}

func createServices(
	companyRepo *company.InMemoryRepository,
	supportRepo *support.InMemoryRepository,
	auditRepo *audit.InMemoryRepository,
	users map[string]demoUser,
) *Services {
	companyService := company.NewService(companyRepo)

	// No target allow-list and no revoked operators in dev mode
	resolver := roles.NewResolver()

	// No notification manager for in-memory mode
	sessionService := support.NewSessionService(supportRepo, companyService, resolver)

	recorder := audit.NewRecorder(auditRepo, supportRepo)
	auditMw, err := audit.NewMiddleware(audit.Config{
		Recorder: recorder,
	})
	if err != nil {
		slog.Error("Failed to create audit middleware", "err", err)
		os.Exit(-1)
	}

	auditService := audit.NewService(auditRepo)

	// JWT auth for middleware
	jwtAuth := jwtauth.New("HS256", []byte(jwtSecret), nil)

	return &Services{
		companyService: companyService,
		sessionService: sessionService,
		auditService:   auditService,
		auditMw:        auditMw,
		jwtAuth:        jwtAuth,
		users:          users,
	}
}

func setupRoutes(r *chi.Mux, services *Services) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Dev token endpoint (public)
	r.Post("/auth/token", issueToken(services.users))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(client.Verifier(services.jwtAuth))
		r.Use(jwtauth.Authenticator(services.jwtAuth))
		r.Use(client.AuthUserMiddleware)
		r.Use(support.ActingMiddleware(services.sessionService))
		r.Use(services.auditMw.AuditRequestMiddleware)
		r.Use(support.RestrictionGate(nil))

		// Support session routes; the admin listing stays under the same
		// prefix but behind the admin role check
		supportHandler := supportapi.NewHandler(services.sessionService)
		r.Route("/api/support", func(r chi.Router) {
			supportHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(client.AdminRoleMiddleware)
				supportHandler.RegisterAdminRoutes(r)
			})
		})

		// Tenant directory routes
		companyHandler := company.NewHandler(services.companyService)
		r.Route("/api/companies", companyHandler.RegisterRoutes)

		// Audit log routes (admin only)
		auditHandler := auditapi.NewHandler(services.auditService)
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(client.AdminRoleMiddleware)
			r.Route("/audit-logs", auditHandler.RegisterRoutes)
		})
	})
}

// issueToken verifies a seeded user's password and mints an HS256 access
// token carrying the same claim layout the identity provider issues.
func issueToken(users map[string]demoUser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]interface{}{
				"code":    string(errors.ErrCodeInvalidInput),
				"message": "invalid request body",
			})
			return
		}

		user, ok := users[req.Email]
		if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]interface{}{
				"code":    string(errors.ErrCodeUnauthorized),
				"message": "invalid email or password",
			})
			return
		}

		expiresAt := time.Now().Add(12 * time.Hour)
		claims := jwt.MapClaims{
			"sub":          user.id,
			"exp":          expiresAt.Unix(),
			"user_id":      user.id,
			"display_name": user.displayName,
			"extra_claims": map[string]string{
				"email":      user.email,
				"role":       user.role,
				"company_id": user.companyID,
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(jwtSecret))
		if err != nil {
			slog.Error("Failed to sign dev token", "err", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]interface{}{
				"code":    string(errors.ErrCodeInternal),
				"message": "failed to sign token",
			})
			return
		}

		render.JSON(w, r, map[string]interface{}{
			"access_token": signed,
			"token_type":   "Bearer",
			"expires_at":   expiresAt.UTC().Format(time.RFC3339),
			"user_id":      user.id,
			"role":         user.role,
		})
	}
}

func seedInitialData(companyRepo *company.InMemoryRepository) ([]company.Company, map[string]demoUser) {
	slog.Info("Seeding initial data...")

	// Create demo companies
	acme := companyRepo.Seed(uuid.New().String(), "Acme Staffing")
	globex := companyRepo.Seed(uuid.New().String(), "Globex Recruiting")
	slog.Info("Created companies", "acme", acme.ID, "globex", globex.ID)

	// Create demo users
	passwordHash, _ := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	seeds := []demoUser{
		{
			id:           uuid.New().String(),
			email:        "support@talenthub.example",
			displayName:  "Sam Okafor",
			role:         roles.RoleSupport.String(),
			passwordHash: passwordHash,
		},
		{
			id:           uuid.New().String(),
			email:        "admin@talenthub.example",
			displayName:  "Ada Nguyen",
			role:         roles.RoleAdmin.String(),
			passwordHash: passwordHash,
		},
		{
			id:           uuid.New().String(),
			email:        "recruiter@acme.example",
			displayName:  "Riley Chen",
			role:         roles.RoleRecruiter.String(),
			companyID:    acme.ID,
			passwordHash: passwordHash,
		},
	}

	users := make(map[string]demoUser, len(seeds))
	for _, user := range seeds {
		users[user.email] = user
		slog.Info("Created user", "email", user.email, "role", user.role, "id", user.id)
	}

	slog.Info("Initial data seeded successfully")
	return []company.Company{acme, globex}, users
}
