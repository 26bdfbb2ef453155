// Package web implements the music transfer web application.
//
// # Workflow
//
//  1. Register and sign in with a local account.
//  2. Submit a Spotify playlist link, URI, ID or name on /spotify. The page posts to /scrape_spotify,
//     which queues a scrape and answers 202 with a Location header pointing at /task-status/{id}.
//  3. The page polls that location until the job reports SUCCESS, then links to /show_songs.
//  4. /create_playlist sends the user through Google's consent screen (/authorize → /oauth2callback)
//     when the session has no credentials, then creates the YouTube playlist.
//
// # State
//
//   - users and jobs tables: accounts, job history and each job's result
//   - server-side sessions: signed-in user, flash messages, OAuth state and Google credentials
//   - the task queue: job state and progress until the result is copied into the jobs table
//
// # Routes
//
//	GET      /, /index          home page (sign in required)
//	GET/POST /login, /register  local accounts
//	GET      /logout
//	GET/POST /spotify           playlist form (sign in required)
//	POST     /scrape_spotify    queue a scrape (sign in required)
//	GET      /task-status/{id}  poll protocol
//	GET      /show_songs        latest job's songs, ?format=csv|md|txt to download
//	GET/POST /create_playlist   name form, then playlist creation
//	GET      /authorize, /oauth2callback, /test, /revoke, /clear, /main
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musictransfer/internal/repositories"
	"github.com/desertthunder/musictransfer/internal/server"
	"github.com/desertthunder/musictransfer/internal/services"
	"github.com/desertthunder/musictransfer/internal/tasks"
	"github.com/go-playground/validator/v10"
	"google.golang.org/api/option"
)

const appName = "musictransfer"

// JobQueue submits scrapes and reports their status.
type JobQueue interface {
	Enqueue(ctx context.Context, playlist string) (string, error)
	Status(ctx context.Context, id string) (*tasks.TaskStatus, error)
}

var _ JobQueue = (*tasks.Queue)(nil)

// YouTubeFactory builds a YouTube client on top of an authorized HTTP client.
type YouTubeFactory func(ctx context.Context, client *http.Client) (services.PlaylistDestination, error)

// DefaultYouTube creates a [services.YouTubeService].
func DefaultYouTube(ctx context.Context, client *http.Client) (services.PlaylistDestination, error) {
	return services.NewYouTubeService(ctx, option.WithHTTPClient(client))
}

// Options wires a [Server] to its collaborators.
type Options struct {
	Users    *repositories.UserRepository
	Jobs     *repositories.JobRepository
	Queue    JobQueue
	Sessions *server.Sessions
	OAuth    *server.GoogleOAuth
	YouTube  YouTubeFactory
	Logger   *log.Logger
	Version  string

	// LoginRate is the number of POST /login attempts allowed per second per client.
	LoginRate float64
}

// Server is the web application.
type Server struct {
	users     *repositories.UserRepository
	jobs      *repositories.JobRepository
	queue     JobQueue
	sessions  *server.Sessions
	oauth     *server.GoogleOAuth
	youtube   YouTubeFactory
	logger    *log.Logger
	version   string
	loginRate float64
	validate  *validator.Validate
	templates templates
}

// NewServer creates a [Server]. Users, Jobs, Queue, Sessions and OAuth are required.
func NewServer(opts Options) (*Server, error) {
	switch {
	case opts.Users == nil, opts.Jobs == nil:
		return nil, errors.New("web server initialization failed: repositories are required")
	case opts.Queue == nil:
		return nil, errors.New("web server initialization failed: job queue is required")
	case opts.Sessions == nil:
		return nil, errors.New("web server initialization failed: sessions are required")
	case opts.OAuth == nil:
		return nil, errors.New("web server initialization failed: Google OAuth is required")
	}

	if opts.YouTube == nil {
		opts.YouTube = DefaultYouTube
	}
	if opts.LoginRate <= 0 {
		opts.LoginRate = 5
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web server initialization failed: %w", err)
	}

	return &Server{
		users:     opts.Users,
		jobs:      opts.Jobs,
		queue:     opts.Queue,
		sessions:  opts.Sessions,
		oauth:     opts.OAuth,
		youtube:   opts.YouTube,
		logger:    opts.Logger,
		version:   opts.Version,
		loginRate: opts.LoginRate,
		validate:  newValidator(),
		templates: tmpl,
	}, nil
}

// Handler returns the application's routes.
func (s *Server) Handler() http.Handler {
	router := server.NewBasicRouter()
	router.Use(server.Standard(appName, s.version, s.logger)...)
	router.Use(s.sessions.Load)

	csrf := server.CrossOrigin()
	auth := router.With(s.requireLogin)

	auth.HandleFunc(http.MethodGet, "/{$}", s.handleIndex)
	auth.HandleFunc(http.MethodGet, "/index", s.handleIndex)

	router.HandleFunc(http.MethodGet, "/login", s.handleLoginForm)
	router.With(csrf, server.LoginLimiter(s.loginRate)).HandleFunc(http.MethodPost, "/login", s.handleLogin)
	router.HandleFunc(http.MethodGet, "/logout", s.handleLogout)
	router.HandleFunc(http.MethodGet, "/register", s.handleRegisterForm)
	router.With(csrf).HandleFunc(http.MethodPost, "/register", s.handleRegister)

	auth.HandleFunc(http.MethodGet, "/spotify", s.handleSpotify)
	auth.With(csrf).HandleFunc(http.MethodPost, "/spotify", s.handleSpotify)
	auth.With(csrf).HandleFunc(http.MethodPost, "/scrape_spotify", s.handleScrape)
	router.With(server.NoCache).HandleFunc(http.MethodGet, "/task-status/{id}", s.handleTaskStatus)
	auth.HandleFunc(http.MethodGet, "/show_songs", s.handleShowSongs)

	router.HandleFunc(http.MethodGet, "/create_playlist", s.handleCreatePlaylistForm)
	router.With(csrf).HandleFunc(http.MethodPost, "/create_playlist", s.handleCreatePlaylist)
	router.HandleFunc(http.MethodGet, "/authorize", s.handleAuthorize)
	router.Handler(server.NewOAuthCallback(s.oauth, s.sessions, "/test", s.logger))
	router.HandleFunc(http.MethodGet, "/test", s.handleTest)
	router.HandleFunc(http.MethodGet, "/revoke", s.handleRevoke)
	router.HandleFunc(http.MethodGet, "/clear", s.handleClear)
	router.HandleFunc(http.MethodGet, "/main", s.handleMain)

	return router
}

// Run serves the application on address until ctx is cancelled.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("failed to shutdown server", "error", err)
		}
	}()

	s.logger.Info("starting web server", "addr", address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}
