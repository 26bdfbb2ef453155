package web

import (
	"net/http"

	"github.com/desertthunder/musictransfer/internal/server"
	"github.com/desertthunder/musictransfer/internal/services"
	"github.com/go-pkgz/rest"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// destination builds a YouTube client for the session's credentials.
func (s *Server) destination(r *http.Request, sess *server.Session) (services.PlaylistDestination, oauth2.TokenSource, error) {
	ts := s.oauth.TokenSource(r.Context(), sess.Credentials)
	yt, err := s.youtube(r.Context(), s.oauth.HTTPClient(r.Context(), ts))
	if err != nil {
		return nil, nil, err
	}
	return yt, ts, nil
}

// saveToken stores a token refreshed during the request back into the session.
func (s *Server) saveToken(w http.ResponseWriter, r *http.Request, sess *server.Session, ts oauth2.TokenSource) bool {
	tok, err := ts.Token()
	if err != nil {
		s.logger.Warn("failed to read refreshed token", "error", err)
		return true
	}
	if !sess.Credentials.Update(tok) {
		return true
	}
	return s.commit(w, r, sess)
}

func (s *Server) handleCreatePlaylistForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "create_playlist", pageData{Title: "Create Playlist"})
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	if sess.Credentials == nil {
		http.Redirect(w, r, "/authorize", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := YTPlaylistName{Name: trimmed(r, "name")}
	if errs := s.check(form); errs != nil {
		s.render(w, r, http.StatusOK, "create_playlist", pageData{Title: "Create Playlist", Form: form, Errors: errs})
		return
	}

	yt, ts, err := s.destination(r, sess)
	if err != nil {
		s.logger.Error("failed to create YouTube client", "error", err)
		http.Error(w, "YouTube is unavailable", http.StatusBadGateway)
		return
	}

	playlist, err := yt.CreatePlaylist(r.Context(), form.Name, services.PlaylistDescription)
	if err != nil {
		s.logger.Error("failed to create playlist", "name", form.Name, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if !s.saveToken(w, r, sess, ts) {
		return
	}

	s.logger.Info("playlist created", "service", yt.Name(), "playlist", playlist.Id, "name", form.Name)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(playlist.Id))
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	sess.OAuthState = uuid.NewString()

	s.redirect(w, r, sess, s.oauth.AuthCodeURL(s.oauth.RedirectURL(r), sess.OAuthState))
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	if sess.Credentials == nil {
		http.Redirect(w, r, "/authorize", http.StatusFound)
		return
	}

	yt, ts, err := s.destination(r, sess)
	if err != nil {
		s.logger.Error("failed to create YouTube client", "error", err)
		http.Error(w, "YouTube is unavailable", http.StatusBadGateway)
		return
	}

	channels, err := yt.MyChannels(r.Context())
	if err != nil {
		s.logger.Error("failed to list channels", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if !s.saveToken(w, r, sess, ts) {
		return
	}
	rest.RenderJSON(w, channels)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	if sess.Credentials == nil {
		writeHTML(w, http.StatusOK, `You need to <a href="/authorize">authorize</a> before testing the code to revoke credentials.`)
		return
	}

	ok, err := s.oauth.Revoke(r.Context(), sess.Credentials.Token)
	if err != nil {
		s.logger.Warn("failed to revoke credentials", "error", err)
	}

	if ok {
		writeHTML(w, http.StatusOK, "Credentials successfully revoked."+indexTable)
		return
	}
	writeHTML(w, http.StatusOK, "An error occurred."+indexTable)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	sess.Credentials = nil
	if !s.commit(w, r, sess) {
		return
	}
	writeHTML(w, http.StatusOK, "Credentials have been cleared.<br><br>"+indexTable)
}

func (s *Server) handleMain(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "main", pageData{Title: "Main"})
}
