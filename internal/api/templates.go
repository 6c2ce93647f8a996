package api

import (
	"embed"
	"html/template"

	"github.com/lox/polyhouse/internal/viewer"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"temp": func(v *float64) string {
			if v == nil {
				return viewer.Placeholder
			}
			return viewer.FormatTemperature(*v)
		},
		"text": func(s *string) string {
			if s == nil {
				return viewer.Placeholder
			}
			return *s
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
