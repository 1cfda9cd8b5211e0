package server

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/brojonat/waveportal/service/feed"
	"github.com/brojonat/waveportal/service/wave"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateRenderer holds parsed HTML templates
type TemplateRenderer struct {
	templates *template.Template
	logger    *slog.Logger
}

// NewTemplateRenderer creates a new template renderer from embedded files
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &TemplateRenderer{
		templates: tmpl,
		logger:    logger,
	}, nil
}

// Render renders a template with the given data
func (tr *TemplateRenderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tr.templates.ExecuteTemplate(w, name, data)
}

type portalPage struct {
	State feed.State
	Waves []wave.Wave
	Alert string
}

// handlePortalPage serves the wave portal page. Waves are listed most
// recent first, and only once a wallet is connected.
func handlePortalPage(renderer *TemplateRenderer, f Feed, alerts *AlertBox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := f.State()
		data := portalPage{
			State: state,
			Waves: wave.Display(state.Waves),
			Alert: alerts.Pop(),
		}
		if err := renderer.Render(w, "index.html", data); err != nil {
			renderer.logger.Error("failed to render template", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
}

// handleConnectForm connects the wallet and redirects back to the page.
// POST /connect
func handleConnectForm(f Feed, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.ConnectWallet(r.Context())
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// handleWaveForm stores the posted message as the draft, starts a
// submission and redirects back to the page. The draft is kept after send.
// POST /wave
func handleWaveForm(f Feed, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := r.ParseForm(); err != nil {
			logger.Debug("failed to parse wave form", "error", err)
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		message := f.State().Draft
		if values, ok := r.PostForm["message"]; ok && len(values) > 0 {
			message = values[0]
			if err := validateMessage(message); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.SetDraft(r.Context(), message)
		}

		submitInBackground(r.Context(), f, message)
		logger.Info("wave submission started", "length", len(message))
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
