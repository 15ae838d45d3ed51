package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"rolegate/internal/audit"
	"rolegate/internal/auth"
	"rolegate/internal/models"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
	RoleContextKey contextKey = "role"
)

// AuthMiddleware holds the access gates. Routes compose them in a fixed
// order: RequireAuth, then RequireRole, then RequireAllowlistedIP.
type AuthMiddleware struct {
	sessions  *auth.SessionManager
	users     *auth.UserService
	audit     *audit.Logger
	allowlist *IPAllowlist
	forbidden http.Handler
	logger    *slog.Logger
}

func NewAuthMiddleware(sessions *auth.SessionManager, users *auth.UserService, auditLog *audit.Logger, allowlist *IPAllowlist) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:  sessions,
		users:     users,
		audit:     auditLog,
		allowlist: allowlist,
		forbidden: http.HandlerFunc(defaultForbidden),
		logger:    slog.Default(),
	}
}

// WithForbidden sets the handler that renders access-denied responses. It
// must write status 403.
func (m *AuthMiddleware) WithForbidden(h http.Handler) *AuthMiddleware {
	m.forbidden = h
	return m
}

func (m *AuthMiddleware) WithLogger(logger *slog.Logger) *AuthMiddleware {
	m.logger = logger
	return m
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.sessions.GetUserID(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if errors.Is(err, auth.ErrUserNotFound) {
			m.sessions.Clear(w, r)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err != nil {
			m.logger.Error("failed to load session user", "user_id", userID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, RoleContextKey, m.sessions.GetRole(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets the request through when the session role is required or
// Admin. A request without a role is sent back to the login page.
func (m *AuthMiddleware) RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r)
			if role == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if !role.Satisfies(required) {
				m.forbidden.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAllowlistedIP restricts Admin routes to allowlisted source
// addresses. Every denial is written to the audit log before the 403 is sent.
// For any other role it does nothing.
func (m *AuthMiddleware) RequireAllowlistedIP(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if role != models.RoleAdmin {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if m.allowlist.Contains(ip) {
				next.ServeHTTP(w, r)
				return
			}

			m.logger.Warn("blocked admin access attempt", "ip", ip, "path", r.URL.Path)

			if err := m.audit.Record(r.Context(), models.UnknownUsername, models.EventAccessDenied, ip); err != nil {
				m.logger.Error("failed to record access denial", "ip", ip, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			m.forbidden.ServeHTTP(w, r)
		})
	}
}

func GetUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserContextKey).(*models.User)
	return user
}

// GetRole returns the role cached in the session at login.
func GetRole(r *http.Request) models.Role {
	role, _ := r.Context().Value(RoleContextKey).(models.Role)
	return role
}

func defaultForbidden(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Forbidden", http.StatusForbidden)
}
