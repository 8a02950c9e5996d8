// Package web embeds the HTML templates.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// LoadTemplates parses every embedded page. Each template is named after
// its file, e.g. "dashboard.html".
func LoadTemplates() (*template.Template, error) {
	return template.New("").ParseFS(templatesFS, "templates/*.html")
}
