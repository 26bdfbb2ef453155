package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/desertthunder/musictransfer/internal/server"
	"github.com/desertthunder/musictransfer/internal/shared"
)

// requireLogin redirects anonymous users to the login page, remembering where they were headed.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := server.SessionFrom(r.Context())
		if sess.Authenticated() {
			next.ServeHTTP(w, r)
			return
		}

		sess.AddFlash("Please log in to access this page.")
		s.redirect(w, r, sess, "/login?next="+url.QueryEscape(r.URL.RequestURI()))
	})
}

// currentUser loads the signed-in user. A session pointing at a missing user is signed out.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	sess := server.SessionFrom(r.Context())

	user, err := s.users.Get(r.Context(), sess.UserID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		sess.SignOut()
		sess.AddFlash("Please log in to access this page.")
		s.redirect(w, r, sess, "/login")
		return nil, false
	case err != nil:
		s.logger.Error("failed to load user", "user", sess.UserID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}

// safeNext returns next when it is a local path, otherwise "/index".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/index"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/index"
	}
	return next
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", pageData{Title: "Home"})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	if sess.Authenticated() {
		s.redirect(w, r, sess, "/spotify")
		return
	}

	s.render(w, r, http.StatusOK, "login", pageData{Title: "Sign In", Data: loginNext(r)})
}

func loginNext(r *http.Request) string {
	next := r.URL.Query().Get("next")
	if safeNext(next) != next {
		return ""
	}
	return next
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	if sess.Authenticated() {
		s.redirect(w, r, sess, "/spotify")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := LoginForm{
		Username:   trimmed(r, "username"),
		Password:   r.PostFormValue("password"),
		RememberMe: checked(r, "remember_me"),
	}
	if errs := s.check(form); errs != nil {
		s.render(w, r, http.StatusOK, "login", pageData{Title: "Sign In", Form: form, Errors: errs, Data: loginNext(r)})
		return
	}

	user, err := s.users.ByUsername(r.Context(), form.Username)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("failed to look up user", "username", form.Username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil || !user.CheckPassword(form.Password) {
		s.logger.Info("failed login", "username", form.Username, "remote", r.RemoteAddr)
		sess.AddFlash("Invalid username or password")
		s.redirect(w, r, sess, "/login")
		return
	}

	if !s.renew(w, r, sess) {
		return
	}
	sess.SignIn(user.ID, form.RememberMe)
	s.logger.Info("user signed in", "user", user.ID)
	s.redirect(w, r, sess, safeNext(r.URL.Query().Get("next")))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	if !s.renew(w, r, sess) {
		return
	}
	sess.SignOut()
	s.redirect(w, r, sess, "/index")
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	if sess.Authenticated() {
		s.redirect(w, r, sess, "/spotify")
		return
	}

	s.render(w, r, http.StatusOK, "register", pageData{Title: "Register"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess := server.SessionFrom(r.Context())
	if sess.Authenticated() {
		s.redirect(w, r, sess, "/spotify")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := RegistrationForm{
		Username:  trimmed(r, "username"),
		Email:     trimmed(r, "email"),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}

	errs := s.check(form)
	if errs == nil {
		errs = FormErrors{}
	}
	if form.Username != "" {
		if _, err := s.users.ByUsername(r.Context(), form.Username); err == nil {
			errs.Add("username", "Username is unavailable.")
		}
	}
	if form.Email != "" {
		if _, err := s.users.ByEmail(r.Context(), form.Email); err == nil {
			errs.Add("email", "Email is already registered.")
		}
	}

	if len(errs) == 0 {
		user, err := models.NewUser(form.Username, form.Email, form.Password)
		if err == nil {
			err = s.users.Create(r.Context(), user)
		}
		switch {
		case errors.Is(err, shared.ErrConflict):
			errs.Add("username", "Username is unavailable.")
		case err != nil:
			s.logger.Error("failed to register user", "username", form.Username, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		default:
			s.logger.Info("user registered", "user", user.ID)
			sess.AddFlash("You are now registerd, please log in.")
			s.redirect(w, r, sess, "/login")
			return
		}
	}

	form.Password, form.Password2 = "", ""
	s.render(w, r, http.StatusOK, "register", pageData{Title: "Register", Form: form, Errors: errs})
}
