package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"rolegate/internal/auth"
	"rolegate/internal/middleware"
)

const msgInvalidLogin = "Invalid username or password"

type AuthHandler struct {
	templates   TemplateExecutor
	sessions    *auth.SessionManager
	userService *auth.UserService
	logger      *slog.Logger
}

func NewAuthHandler(templates TemplateExecutor, sessions *auth.SessionManager, userService *auth.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		templates:   templates,
		sessions:    sessions,
		userService: userService,
		logger:      logger,
	}
}

func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to dashboard
	if _, ok := h.sessions.GetUserID(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := map[string]interface{}{
		"Title":   "Login",
		"Flashes": h.sessions.Flashes(w, r),
	}
	render(w, h.logger, h.templates, http.StatusOK, "login.html", data)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginFailed(w, r)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	ip := middleware.ClientIP(r)

	user, err := h.userService.Login(r.Context(), username, password, ip)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.Info("login failed", "username", username, "ip", ip)
		h.loginFailed(w, r)
		return
	}
	if err != nil {
		serverError(w, h.logger, "login error", err, "username", username, "ip", ip)
		return
	}

	// LOGIN_SUCCESS is already committed at this point; the log line ties a
	// failed session save back to that audit entry.
	if err := h.sessions.SetUser(w, r, user.ID, user.Role); err != nil {
		serverError(w, h.logger, "failed to create session after successful login", err, "username", user.Username, "ip", ip)
		return
	}

	h.logger.Info("login succeeded", "username", user.Username, "role", user.Role, "ip", ip)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.logger.Warn("failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.AddFlash(w, r, msgInvalidLogin); err != nil {
		h.logger.Warn("failed to store flash", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
