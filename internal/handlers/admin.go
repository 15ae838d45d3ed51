package handlers

import (
	"log/slog"
	"net/http"

	"rolegate/internal/audit"
	"rolegate/internal/middleware"
)

type AdminHandler struct {
	templates TemplateExecutor
	audit     *audit.Logger
	limit     int
	logger    *slog.Logger
}

func NewAdminHandler(templates TemplateExecutor, auditLog *audit.Logger, limit int, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		templates: templates,
		audit:     auditLog,
		limit:     limit,
		logger:    logger,
	}
}

func (h *AdminHandler) Admin(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title": "Admin",
		"User":  middleware.GetUser(r),
		"Role":  middleware.GetRole(r),
	}
	render(w, h.logger, h.templates, http.StatusOK, "admin.html", data)
}

// AuditLogs lists the most recent audit entries, newest first.
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.audit.Recent(r.Context(), h.limit)
	if err != nil {
		serverError(w, h.logger, "failed to load audit logs", err)
		return
	}
	total, err := h.audit.Count(r.Context(), "")
	if err != nil {
		serverError(w, h.logger, "failed to count audit logs", err)
		return
	}

	data := map[string]interface{}{
		"Title": "Audit logs",
		"User":  middleware.GetUser(r),
		"Role":  middleware.GetRole(r),
		"Logs":  logs,
		"Total": total,
	}
	render(w, h.logger, h.templates, http.StatusOK, "audit_logs.html", data)
}

// Forbidden renders the access-denied page.
func Forbidden(templates TemplateExecutor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"Title": "Access denied",
			"User":  middleware.GetUser(r),
			"Role":  middleware.GetRole(r),
		}
		render(w, logger, templates, http.StatusForbidden, "403.html", data)
	}
}
