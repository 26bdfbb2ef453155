package web

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LoginForm is submitted to POST /login.
type LoginForm struct {
	Username   string `form:"username" validate:"required"`
	Password   string `form:"password" validate:"required"`
	RememberMe bool   `form:"remember_me"`
}

// RegistrationForm is submitted to POST /register.
type RegistrationForm struct {
	Username  string `form:"username" validate:"required,max=64"`
	Email     string `form:"email" validate:"required,email,max=120"`
	Password  string `form:"password" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

// SpotifyPlaylistSearch is submitted to /spotify and /scrape_spotify.
type SpotifyPlaylistSearch struct {
	Playlist string `form:"playlist" validate:"required"`
}

// YTPlaylistName is submitted to POST /create_playlist.
type YTPlaylistName struct {
	Name string `form:"name" validate:"required,max=150"`
}

// FormErrors maps form field names to their first validation message.
type FormErrors map[string]string

func (e FormErrors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "eqfield":
		return "Passwords must match."
	case "max":
		return "Field cannot be longer than " + fe.Param() + " characters."
	default:
		return "Invalid value."
	}
}

// check validates form and returns per-field messages, or nil when it is valid.
func (s *Server) check(form any) FormErrors {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	errs := FormErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("form", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func trimmed(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

func checked(r *http.Request, key string) bool {
	switch strings.ToLower(r.PostFormValue(key)) {
	case "y", "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
