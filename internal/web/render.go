package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/desertthunder/musictransfer/internal/server"
)

//go:embed templates/*.html
var templatesFS embed.FS

type templates map[string]*template.Template

var pages = []string{
	"home", "login", "register", "select_spotify", "show_songs", "create_playlist", "main",
}

var funcMap = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func parseTemplates() (templates, error) {
	t := make(templates, len(pages))
	for _, page := range pages {
		tmpl, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		t[page] = tmpl
	}
	return t, nil
}

// pageData is passed to every template.
type pageData struct {
	Title         string
	Authenticated bool
	Flashes       []string
	Errors        FormErrors
	Form          any
	Data          any
}

// commit persists the session and logs failures. Handlers call it before writing the response.
func (s *Server) commit(w http.ResponseWriter, r *http.Request, sess *server.Session) bool {
	if err := s.sessions.Save(w, r, sess); err != nil {
		s.logger.Error("failed to save session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}
	return true
}

// renew gives sess a new ID when the signed-in user changes.
func (s *Server) renew(w http.ResponseWriter, r *http.Request, sess *server.Session) bool {
	if err := s.sessions.Renew(r.Context(), sess); err != nil {
		s.logger.Error("failed to renew session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}
	return true
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, sess *server.Session, target string) {
	if !s.commit(w, r, sess) {
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := s.templates[page]
	if !ok {
		s.logger.Warn("template not found", "page", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	sess := server.SessionFrom(r.Context())
	data.Authenticated = sess.Authenticated()
	data.Flashes = sess.PopFlashes()
	if data.Title == "" {
		data.Title = "Music Transfer"
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base.html", data); err != nil {
		s.logger.Warn("failed to execute template", "page", page, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	if len(data.Flashes) > 0 && !s.commit(w, r, sess) {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// indexTable lists the OAuth helper routes.
const indexTable = `<table>` +
	`<tr><td><a href="/test">Test an API request</a></td>` +
	`<td>Submit an API request and see a formatted JSON response. ` +
	`Go through the authorization flow if there are no stored credentials for the user.</td></tr>` +
	`<tr><td><a href="/authorize">Test the auth flow directly</a></td>` +
	`<td>Go directly to the authorization flow. If there are stored credentials, ` +
	`you still might not be prompted to reauthorize the application.</td></tr>` +
	`<tr><td><a href="/revoke">Revoke current credentials</a></td>` +
	`<td>Revoke the access token associated with the current user session. ` +
	`After revoking credentials, if you go to the test page, you should see an <code>invalid_grant</code> error.</td></tr>` +
	`<tr><td><a href="/clear">Clear session credentials</a></td>` +
	`<td>Clear the access token currently stored in the user session. ` +
	`After clearing the token, if you <a href="/test">test the API request</a> again, you should go back to the auth flow.</td></tr>` +
	`</table>`

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

// songsPage is the data of the show_songs template.
type songsPage struct {
	JobID string
	Songs []models.Song
}
