// Package server wires the stores, access gates and handlers into a router.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"rolegate/internal/audit"
	"rolegate/internal/auth"
	"rolegate/internal/config"
	"rolegate/internal/database"
	"rolegate/internal/handlers"
	"rolegate/internal/middleware"
	"rolegate/internal/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	Config    *config.Config
	DB        *database.DB
	Templates handlers.TemplateExecutor
	Logger    *slog.Logger
	// AccessLogger receives one line per request. Defaults to Logger.
	AccessLogger *slog.Logger
}

type Server struct {
	Router   http.Handler
	Users    *auth.UserService
	Audit    *audit.Logger
	Sessions *auth.SessionManager
}

func New(opts Options) (*Server, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	accessLogger := opts.AccessLogger
	if accessLogger == nil {
		accessLogger = logger
	}

	allowlist, err := middleware.NewIPAllowlist(cfg.AdminAllowedIPs)
	if err != nil {
		return nil, fmt.Errorf("admin allowlist: %w", err)
	}
	if allowlist.Len() == 0 {
		logger.Warn("admin allowlist is empty; /admin is unreachable")
	}

	// Initialize services
	auditLog := audit.NewLogger(opts.DB)
	userService := auth.NewUserService(opts.DB, auditLog)
	sessionManager, err := auth.NewSessionManager(cfg.SessionDir(), cfg.SessionSecret, auth.SessionOptions{
		MaxAge: cfg.SessionMaxAge,
		Secure: cfg.SecureCookie,
	})
	if err != nil {
		return nil, err
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(opts.Templates, sessionManager, userService, logger)
	dashboardHandler := handlers.NewDashboardHandler(opts.Templates, logger)
	adminHandler := handlers.NewAdminHandler(opts.Templates, auditLog, cfg.AuditLogLimit, logger)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(sessionManager, userService, auditLog, allowlist).
		WithForbidden(handlers.Forbidden(opts.Templates, logger)).
		WithLogger(logger)
	loginLimiter := middleware.NewLoginLimiter(cfg.LoginRateLimit, cfg.LoginBurst, logger)

	r := chi.NewRouter()

	// Global middleware
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.AccessLog(accessLogger))
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/", authHandler.Home)
	r.Get("/login", authHandler.LoginPage)
	r.With(loginLimiter.Middleware).Post("/login", authHandler.Login)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Get("/logout", authHandler.Logout)
		r.Get("/dashboard", dashboardHandler.Dashboard)

		r.With(authMiddleware.RequireRole(models.RoleEmployee)).Get("/employee", dashboardHandler.Employee)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireRole(models.RoleAdmin))
			r.With(authMiddleware.RequireAllowlistedIP(models.RoleAdmin)).Get("/admin", adminHandler.Admin)
			r.Get("/audit-logs", adminHandler.AuditLogs)
		})
	})

	return &Server{
		Router:   r,
		Users:    userService,
		Audit:    auditLog,
		Sessions: sessionManager,
	}, nil
}
