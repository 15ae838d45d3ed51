// Package render loads the page templates and executes them by name.
package render

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"time"
)

// Registry holds a separate template set per page, each parsed together with
// the shared layouts.
type Registry struct {
	templates map[string]*template.Template
}

func (tr *Registry) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	tmpl, ok := tr.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

// Load parses layouts/*.html and pages/*.html from fsys. Timestamps passed to
// the localTime helper are shown in loc.
func Load(fsys fs.FS, loc *time.Location) (*Registry, error) {
	funcMap := FuncMap(loc)
	registry := &Registry{templates: make(map[string]*template.Template)}

	layoutFiles, err := fs.Glob(fsys, "layouts/*.html")
	if err != nil {
		return nil, err
	}

	pageFiles, err := fs.Glob(fsys, "pages/*.html")
	if err != nil {
		return nil, err
	}
	if len(pageFiles) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}

	for _, pageFile := range pageFiles {
		pageName := path.Base(pageFile)

		files := append(append([]string{}, layoutFiles...), pageFile)
		tmpl, err := template.New(pageName).Funcs(funcMap).ParseFS(fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", pageFile, err)
		}

		registry.templates[pageName] = tmpl
	}

	return registry, nil
}

const timeLayout = "2006-01-02 15:04:05 MST"

func FuncMap(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"localTime": func(t interface{}) string {
			switch v := t.(type) {
			case time.Time:
				if v.IsZero() {
					return ""
				}
				return v.In(loc).Format(timeLayout)
			case *time.Time:
				if v == nil || v.IsZero() {
					return ""
				}
				return v.In(loc).Format(timeLayout)
			}
			return ""
		},
	}
}
