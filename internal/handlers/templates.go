package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
)

// TemplateExecutor is an interface for template execution
// This allows both *template.Template and custom template registries to be used
type TemplateExecutor interface {
	ExecuteTemplate(wr io.Writer, name string, data interface{}) error
}

// render executes the named template into a buffer so a failed render turns
// into a clean 500 instead of a half-written page.
func render(w http.ResponseWriter, logger *slog.Logger, templates TemplateExecutor, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("template error", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func serverError(w http.ResponseWriter, logger *slog.Logger, msg string, err error, attrs ...any) {
	logger.Error(msg, append(attrs, "error", err)...)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
