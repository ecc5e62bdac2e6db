package api

import (
	"embed"
	"html/template"
	"strings"

	"github.com/lox/aqidash/internal/aqi"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"fmtValue": aqi.FormatValue,
		"join":     strings.Join,
		"upper":    strings.ToUpper,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
