package handlers

import (
	"log/slog"
	"net/http"

	"rolegate/internal/middleware"
)

type DashboardHandler struct {
	templates TemplateExecutor
	logger    *slog.Logger
}

func NewDashboardHandler(templates TemplateExecutor, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{templates: templates, logger: logger}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title": "Dashboard",
		"User":  middleware.GetUser(r),
		"Role":  middleware.GetRole(r),
	}
	render(w, h.logger, h.templates, http.StatusOK, "dashboard.html", data)
}

func (h *DashboardHandler) Employee(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title": "Employee",
		"User":  middleware.GetUser(r),
		"Role":  middleware.GetRole(r),
	}
	render(w, h.logger, h.templates, http.StatusOK, "employee.html", data)
}
