package handler

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/whynot-innovations/portal/internal/auth"
	"github.com/whynot-innovations/portal/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names. Each one is a templates/<name>.html file defining "content"
// and rendered inside templates/base.html.
const (
	PageHome     = "home"
	PageLogin    = "login"
	PageApp      = "app"
	PageMessages = "messages"
	PageProfile  = "profile"
	PageAdmin    = "admin"
)

var pageTitles = map[string]string{
	PageHome:     "WhyNot Innovations",
	PageLogin:    "Sign in | WhyNot Innovations",
	PageApp:      "Innovations | WhyNot Innovations",
	PageMessages: "Messages | WhyNot Innovations",
	PageProfile:  "Profile | WhyNot Innovations",
	PageAdmin:    "Admin | WhyNot Innovations",
}

// AdminChecker reports whether the holder of an ID token is an admin.
type AdminChecker interface {
	CheckAdmin(ctx context.Context, token string) (bool, error)
}

// PageHandler renders the HTML shells. The pages fetch their data from the
// JSON API with the signed-in user's bearer token.
//
// Templates are parsed once at startup: base.html together with one page
// file per set, so every page can fill the same {{template "content" .}}.
type PageHandler struct {
	pages        map[string]*template.Template
	authProvider string
	loginPath    string
	admins       AdminChecker
	logger       *slog.Logger
}

// pageData is what every template receives.
type pageData struct {
	Title        string
	Page         string
	AuthProvider string
	IsAdmin      bool
}

func NewPageHandler(authProvider, loginPath string, admins AdminChecker, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageTitles))
	for name := range pageTitles {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:        pages,
		authProvider: authProvider,
		loginPath:    loginPath,
		admins:       admins,
		logger:       logger,
	}, nil
}

// Page returns a handler rendering the named page.
func (h *PageHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, http.StatusOK, name, false)
	}
}

// HandleAdmin renders the admin console. The check here only decides what
// the page shows; the admin API enforces privilege on every call.
func (h *PageHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.SessionToken(r)
	if !ok {
		http.Redirect(w, r, auth.LoginRedirect(h.loginPath, r.URL.Path), http.StatusTemporaryRedirect)
		return
	}

	isAdmin, err := h.admins.CheckAdmin(r.Context(), token)
	if err != nil {
		h.logger.Debug("admin page check failed", slog.String("error", err.Error()))
	}

	status := http.StatusOK
	if !isAdmin {
		status = http.StatusForbidden
	}
	h.render(w, status, PageAdmin, isAdmin)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, name string, isAdmin bool) {
	tmpl, ok := h.pages[name]
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	data := pageData{
		Title:        pageTitles[name],
		Page:         name,
		AuthProvider: h.authProvider,
		IsAdmin:      isAdmin,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
	}
}

var _ AdminChecker = (*service.UserService)(nil)
