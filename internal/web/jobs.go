package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/musictransfer/internal/formatter"
	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/desertthunder/musictransfer/internal/server"
	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/desertthunder/musictransfer/internal/tasks"
	"github.com/go-pkgz/rest"
)

func (s *Server) handleSpotify(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Spotify"}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := SpotifyPlaylistSearch{Playlist: trimmed(r, "playlist")}
		data.Form = form
		data.Errors = s.check(form)
	}

	s.render(w, r, http.StatusOK, "select_spotify", data)
}

// renderStatus writes v as JSON with a non-200 status.
func renderStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	rest.RenderJSON(w, v)
}

func renderError(w http.ResponseWriter, status int, msg string) {
	renderStatus(w, status, rest.JSON{"error": msg})
}

// handleScrape queues a scrape of the submitted playlist and points the client at its status.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	form := SpotifyPlaylistSearch{Playlist: trimmed(r, "playlist")}
	if errs := s.check(form); errs != nil {
		renderError(w, http.StatusBadRequest, "playlist: "+errs["playlist"])
		return
	}

	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	id, err := s.queue.Enqueue(r.Context(), form.Playlist)
	if err != nil {
		s.logger.Error("failed to enqueue scrape", "error", err)
		renderError(w, http.StatusServiceUnavailable, "job queue unavailable")
		return
	}

	if err := s.jobs.CreateForUser(r.Context(), models.NewJob(id, user.ID)); err != nil {
		s.logger.Error("failed to record job", "job", id, "error", err)
		renderError(w, http.StatusInternalServerError, "failed to record job")
		return
	}

	s.logger.Info("scrape queued", "job", id, "user", user.ID, "playlist", form.Playlist)
	w.Header().Set("Location", "/task-status/"+id)
	renderStatus(w, http.StatusAccepted, rest.JSON{})
}

// handleTaskStatus answers the poll protocol. A stored result short-circuits the queue lookup,
// and the first SUCCESS seen copies the result into the job row.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := s.jobs.Get(r.Context(), id)
	switch {
	case err == nil && job.Done():
		rest.RenderJSON(w, tasks.SuccessStatus(job.Result))
		return
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		s.logger.Error("failed to load job", "job", id, "error", err)
	}

	status, err := s.queue.Status(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get task status", "job", id, "error", err)
		renderError(w, http.StatusServiceUnavailable, "job queue unavailable")
		return
	}

	if status.State == tasks.StateSuccess && job != nil {
		result := status.Result
		if len(result) == 0 {
			result = []byte("[]")
		}
		if _, err := s.jobs.SetResult(r.Context(), id, result); err != nil {
			s.logger.Error("failed to store job result", "job", id, "error", err)
		}
	}

	rest.RenderJSON(w, status)
}

func (s *Server) handleShowSongs(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	data := pageData{Title: "Songs"}
	jobID, ok := user.LatestJob()
	if !ok {
		s.render(w, r, http.StatusOK, "show_songs", data)
		return
	}

	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		s.logger.Error("failed to load job", "job", jobID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !job.Done() {
		sess := server.SessionFrom(r.Context())
		sess.AddFlash("Your latest job has not finished yet.")
		s.render(w, r, http.StatusOK, "show_songs", data)
		return
	}

	songs, err := job.Songs()
	if err != nil {
		s.logger.Error("failed to decode job result", "job", jobID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if f := r.URL.Query().Get("format"); f != "" {
		s.exportSongs(w, f, job.ID, songs)
		return
	}

	data.Data = songsPage{JobID: job.ID, Songs: songs}
	s.render(w, r, http.StatusOK, "show_songs", data)
}

func (s *Server) exportSongs(w http.ResponseWriter, format, jobID string, songs []models.Song) {
	f, err := formatter.ParseFormat(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := formatter.Export(f, "Job "+jobID, songs)
	if err != nil {
		s.logger.Error("failed to export songs", "job", jobID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename("songs-"+jobID)))
	w.Write(out)
}
