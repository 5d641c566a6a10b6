package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateData holds common data passed to all templates
type TemplateData struct {
	Title           string
	UserID          uuid.UUID
	IsAuthenticated bool
	CSRFToken       string
	Error           string
	Success         string
	Data            interface{}
}

// templates is the global template cache
var templates map[string]*template.Template

var pages = []string{
	"signup.html",
	"login.html",
	"organizations.html",
	"organization_detail.html",
}

// InitTemplates parses and caches all page templates together with the
// shared layout
func InitTemplates() error {
	cache := make(map[string]*template.Template, len(pages))

	for _, page := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return err
		}
		cache[page] = tmpl
	}

	templates = cache
	log.Info().Int("count", len(templates)).Msg("Templates initialized")
	return nil
}

// RenderTemplate renders a template with the given data
func RenderTemplate(w http.ResponseWriter, r *http.Request, name string, data *TemplateData) {
	tmpl, ok := templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("Template not found")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}
